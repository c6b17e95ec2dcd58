// wayclipctl: control-CLI client for the wayclipd control socket.
//
// Not the GTK front-end spec.md places out of scope — a thin, scriptable
// client exercising the same IPC wire protocol a GUI would use.
package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"go.wayclip.dev/wayclip/internal/ipc"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

// clientMaxLine bounds the response line the client will read; it does not
// know the daemon's configured max_entry_size, so it uses a generous
// upper bound instead of the daemon's exact per-line cap.
const clientMaxLine = 64 * 1024 * 1024

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "wayclipctl:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "wayclipctl",
		Short:        "Control client for wayclipd",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newListCmd(),
		newGetCmd(),
		newCopyCmd(),
		newRmCmd(),
		newClearCmd(),
		newPingCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("wayclipctl %s\n", Version)
		},
	}
}

func newListCmd() *cobra.Command {
	var limit int
	var query string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clipboard history",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			resp, err := call(ipc.Request{Kind: "List", List: ipc.ListParams{Limit: limit, Query: query}})
			if err != nil {
				return err
			}
			if err := checkError(resp); err != nil {
				return err
			}
			if jsonOut {
				return printJSON(resp.History.Entries)
			}
			printEntryTable(resp.History.Entries)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of entries to return (0 = unlimited)")
	cmd.Flags().StringVar(&query, "query", "", "case-insensitive substring filter")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output raw JSON")
	return cmd
}

func newGetCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print one entry's full content",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			resp, err := call(ipc.Request{Kind: "Get", ID: ipc.IDParams{ID: id}})
			if err != nil {
				return err
			}
			if err := checkError(resp); err != nil {
				return err
			}
			if jsonOut {
				return printJSON(resp.Entry.Entry)
			}
			return printEntryContent(resp.Entry.Entry)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output raw JSON")
	return cmd
}

func newCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <id>",
		Short: "Replay an entry back onto the live clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			resp, err := call(ipc.Request{Kind: "Copy", ID: ipc.IDParams{ID: id}})
			if err != nil {
				return err
			}
			return checkError(resp)
		},
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			resp, err := call(ipc.Request{Kind: "Delete", ID: ipc.IDParams{ID: id}})
			if err != nil {
				return err
			}
			return checkError(resp)
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all history",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			resp, err := call(ipc.Request{Kind: "Clear"})
			if err != nil {
				return err
			}
			return checkError(resp)
		},
	}
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that wayclipd is reachable",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			resp, err := call(ipc.Request{Kind: "Ping"})
			if err != nil {
				return err
			}
			if err := checkError(resp); err != nil {
				return err
			}
			fmt.Println("pong")
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

// call dials the control socket, sends req, and reads back exactly one
// response, matching the daemon's single-shot-per-connection contract.
func call(req ipc.Request) (ipc.Response, error) {
	conn, err := ipc.Dial()
	if err != nil {
		return ipc.Response{}, fmt.Errorf("is wayclipd running? %w", err)
	}
	defer conn.Close()

	wc := ipc.NewConn(conn, clientMaxLine)
	if err := wc.WriteRequest(req); err != nil {
		return ipc.Response{}, err
	}
	return wc.ReadResponse()
}

func checkError(resp ipc.Response) error {
	if resp.Kind != "Error" {
		return nil
	}
	return fmt.Errorf("%s: %s", resp.Error.Kind, resp.Error.Message)
}

func printEntryTable(entries []ipc.EntryView) {
	if len(entries) == 0 {
		fmt.Println("No history.")
		return
	}
	for _, e := range entries {
		ts := time.Unix(e.LastAccessedAt, 0).Format("2006-01-02 15:04:05")
		fmt.Printf("%-6d %-10s %-30s %s\n", e.ID, e.ContentType, e.Preview, ts)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printEntryContent(e ipc.EntryView) error {
	data, err := base64.StdEncoding.DecodeString(e.Data)
	if err != nil {
		return fmt.Errorf("decode entry data: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}
