package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/fusion/internal/errors"
	"github.com/vango-dev/fusion/pkg/storage"
)

func storageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Read and write persisted records",
		Long: `Read and write the persisted record of a namespace.

A record is a JSON object mapping bare key names to values. The
namespace defaults to the one in the config file.

Examples:
  fusion storage get
  fusion storage get shop
  fusion storage keys
  fusion storage set shop '{"cart":[1,2]}'
  echo '{"theme":"dark"}' | fusion storage set shop -
  fusion storage rm shop`,
	}

	cmd.AddCommand(
		storageGetCmd(),
		storageKeysCmd(),
		storageSetCmd(),
		storageRmCmd(),
	)
	return cmd
}

// withAdapter loads the config, opens its adapter and runs fn with the
// namespace from args or the config.
func withAdapter(cmd *cobra.Command, args []string, fn func(ctx context.Context, a storage.Adapter, namespace string) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	adapter, closer, err := requireAdapter(ctx, cfg)
	defer closer()
	if err != nil {
		return err
	}

	namespace := cfg.Namespace
	if len(args) > 0 && args[0] != "" {
		namespace = args[0]
	}
	return fn(ctx, adapter, namespace)
}

func storageGetCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "get [namespace]",
		Short: "Print the record of a namespace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdapter(cmd, args, func(ctx context.Context, a storage.Adapter, ns string) error {
				data, ok, err := a.GetItem(ctx, ns)
				if err != nil {
					return errors.New(errors.PersistenceReadError).WithNamespace(ns).Wrap(err)
				}
				if !ok {
					return fmt.Errorf("no record for namespace %q", ns)
				}
				if raw {
					fmt.Fprintln(cmd.OutOrStdout(), data)
					return nil
				}
				return printIndented(cmd.OutOrStdout(), []byte(data))
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the record as stored")
	return cmd
}

func storageKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys [namespace]",
		Short: "List the bare key names in a record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdapter(cmd, args, func(ctx context.Context, a storage.Adapter, ns string) error {
				data, ok, err := a.GetItem(ctx, ns)
				if err != nil {
					return errors.New(errors.PersistenceReadError).WithNamespace(ns).Wrap(err)
				}
				if !ok {
					return nil
				}
				names, err := recordKeys([]byte(data))
				if err != nil {
					return errors.New(errors.PersistenceReadError).WithNamespace(ns).Wrap(err)
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
}

func storageSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <namespace> <record|->",
		Short: "Replace the record of a namespace",
		Long: `Replace the record of a namespace with a JSON object.

Pass - to read the record from stdin. The value must be a JSON
object; anything else would be rejected by stores on hydration.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input []byte
			if args[1] == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				input = data
			} else {
				input = []byte(args[1])
			}

			record, err := normalizeRecord(input)
			if err != nil {
				return err
			}

			return withAdapter(cmd, args[:1], func(ctx context.Context, a storage.Adapter, ns string) error {
				if err := a.SetItem(ctx, ns, string(record)); err != nil {
					return errors.New(errors.PersistenceWriteError).WithNamespace(ns).Wrap(err)
				}
				success("Wrote record for %s (%d bytes)", ns, len(record))
				return nil
			})
		},
	}
}

func storageRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [namespace]",
		Short: "Remove the record of a namespace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdapter(cmd, args, func(ctx context.Context, a storage.Adapter, ns string) error {
				if err := a.RemoveItem(ctx, ns); err != nil {
					return errors.New(errors.PersistenceWriteError).WithNamespace(ns).Wrap(err)
				}
				success("Removed record for %s", ns)
				return nil
			})
		},
	}
}

// normalizeRecord checks that input is a JSON object and returns it
// compacted.
func normalizeRecord(input []byte) ([]byte, error) {
	var record map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(input), &record); err != nil {
		return nil, errors.New(errors.ConfigInvalid).
			WithDetail("A record must be a JSON object: " + err.Error())
	}
	if record == nil {
		return nil, errors.New(errors.ConfigInvalid).WithDetail("A record must be a JSON object, got null")
	}
	return json.Marshal(record)
}

// recordKeys returns the sorted names in a record.
func recordKeys(data []byte) ([]string, error) {
	var record map[string]json.RawMessage
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(record))
	for name := range record {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func printIndented(w io.Writer, data []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		// Not JSON; show it as stored.
		_, err = fmt.Fprintln(w, strings.TrimSpace(string(data)))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
