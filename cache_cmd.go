package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/config"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the persistent cache store",
	}

	var backend string
	cmd.PersistentFlags().StringVar(&backend, "backend", config.BackendSQLite, "cache backend: memory or sqlite")

	loadConfig := func() (*config.Config, error) {
		return config.Load(func(c *config.Config) { c.CacheBackend = backend })
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List cache generations and their entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			storage, err := openStorage(cfg)
			if err != nil {
				return err
			}
			defer storage.Close()

			names, err := storage.Keys(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "no caches")
				return nil
			}
			for _, name := range names {
				c, err := storage.Open(cmd.Context(), name)
				if err != nil {
					return err
				}
				keys, err := c.Keys(cmd.Context())
				if err != nil {
					return err
				}
				live := ""
				if name == cfg.CacheVersion {
					live = " (current)"
				}
				fmt.Fprintf(out, "%s%s: %d entries\n", name, live, len(keys))
				for _, k := range keys {
					fmt.Fprintf(out, "  %s\n", k)
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm NAME",
		Short: "Delete one cache generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			storage, err := openStorage(cfg)
			if err != nil {
				return err
			}
			defer storage.Close()

			deleted, err := storage.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("no cache named %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	})

	return cmd
}
