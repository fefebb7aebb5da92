package signaling

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRelay(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(NewServer(zerolog.Nop()))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func connect(t *testing.T, url, id, role string, h Handler) *Client {
	t.Helper()
	registered := make(chan struct{})
	onRegistered := h.OnRegistered
	h.OnRegistered = func() {
		if onRegistered != nil {
			onRegistered()
		}
		close(registered)
	}
	c := NewClient(url, id, role, h)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(c.Close)
	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s never registered", id)
	}
	return c
}

func TestRelayOfferAndAnswer(t *testing.T) {
	url := newRelay(t)

	offers := make(chan string, 1)
	var display *Client
	display = connect(t, url, "slm-1", RoleDisplay, Handler{
		OnOffer: func(from string, payload json.RawMessage) {
			offers <- from + ":" + string(payload)
			display.SendAnswer(from, json.RawMessage(`"answer-sdp"`))
		},
	})

	answers := make(chan string, 1)
	displays := make(chan []DisplayInfo, 4)
	ctrl := connect(t, url, "ctl-1", RoleController, Handler{
		OnAnswer:   func(from string, payload json.RawMessage) { answers <- from + ":" + string(payload) },
		OnDisplays: func(d []DisplayInfo) { displays <- d },
	})

	require.NoError(t, ctrl.ListDisplays())
	select {
	case d := <-displays:
		assert.Equal(t, []DisplayInfo{{ID: "slm-1"}}, d)
	case <-time.After(2 * time.Second):
		t.Fatal("no display list")
	}

	require.NoError(t, ctrl.SendOffer("slm-1", json.RawMessage(`"offer-sdp"`)))
	select {
	case got := <-offers:
		assert.Equal(t, `ctl-1:"offer-sdp"`, got)
	case <-time.After(2 * time.Second):
		t.Fatal("offer not relayed")
	}
	select {
	case got := <-answers:
		assert.Equal(t, `slm-1:"answer-sdp"`, got)
	case <-time.After(2 * time.Second):
		t.Fatal("answer not relayed")
	}
}

func TestRelayUnknownTargetAndGoneDisplay(t *testing.T) {
	url := newRelay(t)

	errs := make(chan string, 1)
	gone := make(chan string, 1)
	ctrl := connect(t, url, "ctl", RoleController, Handler{
		OnError:       func(msg string) { errs <- msg },
		OnDisplayGone: func(id string) { gone <- id },
	})

	require.NoError(t, ctrl.SendOffer("nobody", json.RawMessage(`{}`)))
	select {
	case msg := <-errs:
		assert.Contains(t, msg, "unknown target")
	case <-time.After(2 * time.Second):
		t.Fatal("no error for unknown target")
	}

	display := connect(t, url, "slm", RoleDisplay, Handler{})
	display.Close()
	select {
	case id := <-gone:
		assert.Equal(t, "slm", id)
	case <-time.After(2 * time.Second):
		t.Fatal("display departure not announced")
	}
}
