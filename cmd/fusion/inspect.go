package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/vango-dev/fusion/pkg/devtools"
)

var bridgeAddr string

// bridgeURL returns the devtools base URL from --addr or the config.
func bridgeURL() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if bridgeAddr != "" {
		cfg.Devtools.Addr = bridgeAddr
	}
	return cfg.DevtoolsURL(), nil
}

func addBridgeFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&bridgeAddr, "addr", "a", "", "Devtools bridge address (default from config)")
}

func storesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stores",
		Short: "List stores registered with devtools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := bridgeURL()
			if err != nil {
				return err
			}
			var list struct {
				Stores []string `json:"stores"`
			}
			if err := getJSON(cmd.Context(), base+"/stores", &list); err != nil {
				return err
			}
			if len(list.Stores) == 0 {
				warn("No stores registered at %s", base)
				return nil
			}
			for _, name := range list.Stores {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	addBridgeFlag(cmd)
	return cmd
}

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot <store>",
		Short: "Print the current values of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := bridgeURL()
			if err != nil {
				return err
			}
			var ev devtools.Event
			if err := getJSON(cmd.Context(), base+"/stores/"+url.PathEscape(args[0]), &ev); err != nil {
				return err
			}
			data, err := json.MarshalIndent(ev.Snapshot, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	addBridgeFlag(cmd)
	return cmd
}

func inspectCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "inspect <store>",
		Short: "Stream change events of a store",
		Long: `Stream change events of a store from the devtools bridge.

The first line is the current snapshot. Every accepted write,
declaration, removal and hydration follows as it happens.

Examples:
  fusion inspect cart
  fusion inspect cart --json | jq .changedKeys`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := bridgeURL()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return tail(ctx, eventsURL(base, args[0]), func(ev devtools.Event) error {
				if jsonOut {
					data, err := json.Marshal(ev)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return err
				}
				return printEvent(cmd.OutOrStdout(), ev)
			})
		},
	}
	addBridgeFlag(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print events as JSON lines")
	return cmd
}

// eventsURL converts an http(s) bridge URL into the websocket URL for a
// store's event stream.
func eventsURL(base, name string) string {
	ws := base
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return ws + "/stores/" + url.PathEscape(name) + "/events"
}

// tail reads events from the websocket at u until ctx is done or the
// connection closes.
func tail(ctx context.Context, u string, fn func(devtools.Event) error) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("store not found at %s", u)
		}
		return fmt.Errorf("connect to devtools bridge: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		var ev devtools.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}

func printEvent(w io.Writer, ev devtools.Event) error {
	at := ev.At.Local().Format("15:04:05.000")
	if len(ev.ChangedKeys) == 0 {
		fmt.Fprintf(w, "%s  %s  snapshot (%d keys)\n", at, ev.Store, len(ev.Snapshot))
	} else {
		fmt.Fprintf(w, "%s  %s  changed %s\n", at, ev.Store, strings.Join(ev.ChangedKeys, ", "))
	}

	keys := ev.ChangedKeys
	if len(keys) == 0 {
		keys = make([]string, 0, len(ev.Snapshot))
		for k := range ev.Snapshot {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	for _, k := range keys {
		v, ok := ev.Snapshot[k]
		if !ok {
			fmt.Fprintf(w, "    %s  (removed)\n", k)
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "    %s = %s\n", k, data)
	}
	return nil
}

func getJSON(ctx context.Context, u string, v any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to devtools bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		if body.Error != "" {
			return fmt.Errorf("%s", body.Error)
		}
		return fmt.Errorf("devtools bridge returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
