package rtc

import (
	"context"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/pion/webrtc/v4"
)

func TestConnectionCloseRunsOnClosed(t *testing.T) {
	is := is.New(t)
	api, err := NewAPI()
	is.NoErr(err)
	c, err := NewConnection(api, webrtc.Configuration{}, "c1")
	is.NoErr(err)

	closed := make(chan struct{}, 1)
	c.OnClosed(func() {
		select {
		case closed <- struct{}{}:
		default:
		}
	})
	is.NoErr(c.Start(context.Background()))
	c.Close()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClosed not called")
	}
}
