// Command bodyd is a small demo server exercising the body package's
// accumulator end to end over a real TCP listener: it reads each
// request body to completion (or rejects it as too large), reports
// what happened on the terminal, and drains anything the handler left
// unread so the connection can be reused.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"network-stack/application/http"
	"network-stack/application/http/actor/server"
	"network-stack/application/http/semantic"
	"network-stack/application/http/semantic/status"
	"network-stack/lib/types/pointer"
	"network-stack/transport/nettcp"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "address to listen on")
	maxBody := flag.Uint("max-body", 1<<20, "maximum accepted request body size, in bytes")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	lis, err := nettcp.Listen(nettcp.Addr{Network: "tcp", Address: *addr})
	if err != nil {
		fmt.Fprintln(os.Stderr, "listen:", err)
		os.Exit(1)
	}

	opts := server.Options{
		Serve: server.ServeOptions{
			Encode:        http.DefaultEncodeOptions,
			Decode:        http.DefaultDecodeOptions,
			MaxContentLen: *maxBody,
			Timeout: server.TimeoutOptions{
				IdleTimeout:  30 * time.Second,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			},
		},
		Pipeline: server.PipelineOptions{
			BufferLength: 4,
		},
	}

	srv := server.New(lis, logger, clock.New(), echoBody, opts)

	fmt.Println(titleStyle.Render("bodyd") + " listening on " + *addr)
	srv.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	fmt.Println("shutting down")
	srv.Close()
}

// echoBody reads the request body through the accumulator's one-shot
// reader and echoes its length back, demonstrating the three outcomes
// an application sees from [body.Accumulator.Read]: a normal body, a
// too-large rejection answered as HTTP 413, and everything else
// surfacing through [server.HandleContext.Error].
func echoBody(c *server.HandleContext, request *semantic.Request) *semantic.Response {
	if request.Accumulator == nil {
		return textResponse(status.OK, "no body\n")
	}

	chunk, err := request.Accumulator.Read(c.Context(), func(ceiling, observed int64) error {
		fmt.Println(warnStyle.Render(fmt.Sprintf(
			"rejecting %s: %d bytes exceeds %d byte ceiling",
			request.URI.String(), observed, ceiling,
		)))
		return nil
	})
	if err != nil {
		return c.Error(err)
	}
	if chunk == nil {
		// onTooLarge handled it above: answer 413 with no body.
		return &semantic.Response{Status: status.ContentTooLarge}
	}
	defer chunk.Release()

	n := chunk.Len()
	fmt.Println(okStyle.Render(fmt.Sprintf("%s: read %d bytes", request.URI.String(), n)))

	return textResponse(status.OK, fmt.Sprintf("read %d bytes\n", n))
}

func textResponse(st status.Status, body string) *semantic.Response {
	n := uint(len(body))
	return &semantic.Response{
		Status: st,
		Message: semantic.Message{
			Headers: semantic.NewHeaders(map[string][]string{
				"Content-Type": {"text/plain; charset=utf-8"},
			}),
			ContentLength: pointer.To(n),
			Body:          io.NopCloser(strings.NewReader(body)),
		},
	}
}
