package cron

import (
	"context"
	"testing"

	"github.com/matryer/is"
)

func TestAddFunc(t *testing.T) {
	is := is.New(t)
	s := NewScheduler()

	id, err := s.AddFunc("@every 1m", func() {})
	is.NoErr(err)
	is.True(id > 0)
	is.Equal(len(s.Entries()), 1)

	_, err = s.AddFunc("not a spec", func() {})
	is.True(err != nil)

	s.Start()
	s.Shutdown(context.Background())
}
