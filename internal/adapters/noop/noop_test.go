package noop_test

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-order-tracker/internal/adapters/noop"
	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

func TestTransportsCoverEveryChannel(t *testing.T) {
	transports := noop.Transports(nil)
	if len(transports) != 2 || transports[0].Channel() != "sms" || transports[1].Channel() != "email" {
		t.Fatalf("unexpected transports %+v", transports)
	}

	receipt, err := noop.SMS(nil).Send(context.Background(), interfaces.OutboundMessage{ID: "1", Recipient: "+15550001111", Body: "hi"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.HasPrefix(receipt.ProviderID, "noop-") {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
}

func TestTransportHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := noop.Email(nil).Send(ctx, interfaces.OutboundMessage{ID: "1"}); err == nil {
		t.Fatalf("expected cancelled context to fail")
	}
}
