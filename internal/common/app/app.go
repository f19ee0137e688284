package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/drf-controller/internal/common/drfcontext"
)

// CreateContextWithShutdown returns a context that is cancelled on the first SIGINT or SIGTERM.
func CreateContextWithShutdown(logger *log.Entry) *drfcontext.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(c)
		select {
		case sig := <-c:
			logger.Infof("Received %s; shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return drfcontext.New(ctx, logger)
}
