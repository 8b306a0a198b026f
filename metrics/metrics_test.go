package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hrygo/ragdesk/chat"
)

func TestChatMetrics_Scrape(t *testing.T) {
	m := NewChatMetrics(func() int { return 3 })

	m.RecordExchange(chat.ModeGeneral, 150*time.Millisecond, nil)
	m.RecordExchange(chat.ModeGrounded, 2*time.Second, nil)
	m.RecordExchange(chat.ModeGrounded, time.Second, errDummy{})
	m.RecordStaleDrop(chat.ModeGrounded)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		`ragdesk_chat_exchanges_total{mode="general",status="ok"} 1`,
		`ragdesk_chat_exchanges_total{mode="grounded",status="ok"} 1`,
		`ragdesk_chat_exchanges_total{mode="grounded",status="error"} 1`,
		`ragdesk_chat_stale_drops_total{mode="grounded"} 1`,
		`ragdesk_chat_sessions 3`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

func TestChatMetrics_NoSessionGauge(t *testing.T) {
	m := NewChatMetrics(nil)
	m.RecordExchange(chat.ModeGeneral, time.Millisecond, nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if strings.Contains(rec.Body.String(), "ragdesk_chat_sessions") {
		t.Error("session gauge should not be registered without a counter func")
	}
}

type errDummy struct{}

func (errDummy) Error() string { return "dummy" }
