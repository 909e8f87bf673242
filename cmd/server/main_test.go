package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestServe_ReturnsStartFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	done := make(chan error, 1)
	go func() { done <- serve(context.Background(), e, ln.Addr().String(), time.Second, quietLog()) }()

	select {
	case err := <-done:
		require.Error(t, err, "an occupied port is reported, not fatal")
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after a failed start")
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, e, "127.0.0.1:0", time.Second, quietLog()) }()

	require.Eventually(t, func() bool { return e.ListenerAddr() != nil }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
