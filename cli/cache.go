package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/opendap/olfs/core/register"
	"github.com/opendap/olfs/core/respcache"
)

func newCacheCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the response cache configured for the server.",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print cached keys.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*configFile, func(store respcache.Store) error {
				return listCache(cmd.OutOrStdout(), store)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print cached document.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*configFile, func(store respcache.Store) error {
				return getCache(cmd.OutOrStdout(), cmd.ErrOrStderr(), store, args[0])
			})
		},
	})
	return cmd
}

func withStore(file string, do func(respcache.Store) error) (err error) {
	conf, _, err := readConfig(file)
	if err != nil {
		return err
	}
	if len(conf.Cache) == 0 {
		return errors.New("no response cache configured")
	}
	importPlugins()
	_, store, err := register.Stores.New(conf.Cache)
	if err != nil {
		return errors.WithMessage(err, "response cache")
	}
	defer func() {
		closeErr := store.Close()
		if err == nil {
			err = closeErr
		}
	}()
	return do(store)
}

func listCache(w io.Writer, store respcache.Store) error {
	keys, err := store.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		_, err = fmt.Fprintln(w, key)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// getCache writes the document to w and its last visit time to info.
func getCache(w, info io.Writer, store respcache.Store, key string) error {
	entry, ok, err := store.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("%q is not cached", key)
	}
	fmt.Fprintf(info, "last visited: %s\n", entry.LastVisited.Format(time.RFC3339))
	_, err = w.Write(entry.Doc)
	return errors.WithStack(err)
}
