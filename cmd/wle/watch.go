package main

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/wle/pkg/events"
)

var pushPort = "81"

func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watch",
		GroupID: gBasic,
		Short:   "Print level changes as they happen",
		Long: `Connect to the daemon's push listener and print every level change.

Console output relayed by the daemon is printed as is.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := pushURL(daemonAddr, pushPort)
			if err != nil {
				return err
			}

			logrus.Debugf("connecting to %s", u)
			conn, _, err := websocket.DefaultDialer.Dial(u, nil)
			if err != nil {
				return fmt.Errorf("failed to connect to push listener: %w", err)
			}
			defer conn.Close()

			var closing atomic.Bool
			sigc := make(chan os.Signal, 1)
			signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigc
				closing.Store(true)
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				_ = conn.Close()
			}()

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					if closing.Load() {
						return nil
					}
					return fmt.Errorf("push connection lost: %w", err)
				}
				printFrame(cmd, string(msg))
			}
		},
	}

	cmd.Flags().StringVar(&pushPort, "push-port", pushPort, "port of the daemon's push listener")

	return cmd
}

func printFrame(cmd *cobra.Command, frame string) {
	e, err := events.Parse(frame)
	if err != nil {
		cmd.Print(frame)
		return
	}
	if lvl, err := e.Level(); err == nil {
		cmd.Printf("%s level %s\n", e.Name, bold("%d%%", lvl))
		return
	}
	cmd.Printf("%s %s\n", e.Name, e.Data)
}

// pushURL derives the WebSocket URL from the daemon's HTTP address.
func pushURL(addr, port string) (string, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("invalid daemon address %q: %v", addr, err)
	}
	host := u.Hostname()
	if host == "" {
		host = "127.0.0.1"
	}
	return "ws://" + net.JoinHostPort(host, port) + "/", nil
}
