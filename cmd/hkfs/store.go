package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nspcc-dev/hkfs/cmd/hkfs/config"
	"github.com/nspcc-dev/hkfs/cmd/internal/cmderr"
	"github.com/nspcc-dev/hkfs/pkg/hkfs/hasher"
	"github.com/nspcc-dev/hkfs/pkg/hkfs/key"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/common"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/hktree"
	"github.com/spf13/cobra"
)

const (
	stdinArg = "-"

	hexFlag        = "hex"
	noProgressFlag = "no-progress"
	offsetFlag     = "offset"
	lengthFlag     = "length"
	outFlag        = "out"
	longFlag       = "long"
)

func keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key [FILE|-]",
		Short: "Print the key of the contents without storing them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := config.StoreHasher(appFrom(cmd).cfg)
			if err != nil {
				return err
			}

			r, closeFn, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer closeFn()

			k, err := h.DigestStream(r, hasher.DefaultChunkSize)
			if err != nil {
				return fmt.Errorf("hash input: %w", err)
			}
			printKey(cmd, k)
			return nil
		},
	}
	cmd.Flags().Bool(hexFlag, false, "Print the key in hex instead of base64")
	return cmd
}

func createCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [FILE|-]",
		Short: "Store a copy of the file or of the standard input",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := appFrom(cmd).openStore()
			if err != nil {
				return err
			}

			noProgress, _ := cmd.Flags().GetBool(noProgressFlag)
			if len(args) == 0 || args[0] == stdinArg {
				k, err := store.CreateFromReader(cmd.InOrStdin())
				if err != nil {
					return err
				}
				printKey(cmd, k)
				return nil
			}

			if noProgress || !isTerminal(cmd.ErrOrStderr()) {
				k, err := store.CreateFromFile(args[0])
				if err != nil {
					return err
				}
				printKey(cmd, k)
				return nil
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			fi, err := f.Stat()
			if err != nil {
				return err
			}

			p := newProgressBar(cmd.ErrOrStderr(), fi.Size())
			k, err := store.CreateFromReader(p.NewProxyReader(f))
			p.Finish()
			if err != nil {
				return err
			}
			printKey(cmd, k)
			return nil
		},
	}
	cmd.Flags().Bool(hexFlag, false, "Print the key in hex instead of base64")
	cmd.Flags().Bool(noProgressFlag, false, "Do not show progress bar")
	return cmd
}

func readCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read KEY",
		Short: "Write object contents to the standard output or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, k, err := storeAndKey(cmd, args[0])
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if p, _ := cmd.Flags().GetString(outFlag); p != "" {
				f, err := os.Create(p)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			offset, _ := cmd.Flags().GetInt64(offsetFlag)
			length, _ := cmd.Flags().GetInt64(lengthFlag)
			if offset == 0 && length < 0 {
				f, err := store.OpenObject(k)
				if err != nil {
					return err
				}
				defer f.Close()
				_, err = io.Copy(out, f)
				return err
			}

			data, err := store.Read(k, offset, length)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
	cmd.Flags().Int64(offsetFlag, 0, "Offset of the first byte to read")
	cmd.Flags().Int64(lengthFlag, -1, "Number of bytes to read, negative means up to the end")
	cmd.Flags().StringP(outFlag, "o", "", "Output file")
	return cmd
}

func existsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists KEY",
		Short: "Check whether the object is stored, exit code is 1 if it is not",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, k, err := storeAndKey(cmd, args[0])
			if err != nil {
				return err
			}
			ok, err := store.Exists(k)
			if err != nil {
				return err
			}
			cmd.Println(ok)
			if !ok {
				return cmderr.ExitErr{Code: 1}
			}
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY",
		Short: "Remove the object, names linked to it elsewhere are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, k, err := storeAndKey(cmd, args[0])
			if err != nil {
				return err
			}
			return store.Delete(k)
		},
	}
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List keys of stored objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := appFrom(cmd).openStore()
			if err != nil {
				return err
			}
			long, _ := cmd.Flags().GetBool(longFlag)
			return store.Iterate(func(k key.Key) error {
				if !long {
					cmd.Println(k)
					return nil
				}
				size, err := store.Size(k)
				if errors.Is(err, common.ErrNotFound) {
					return nil
				}
				if err != nil {
					return err
				}
				cmd.Printf("%s\t%d\n", k, size)
				return nil
			})
		},
	}
	cmd.Flags().BoolP(longFlag, "l", false, "Print object sizes")
	return cmd
}

func copyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy DIR",
		Short: "Copy all objects into another storage using the same hash function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			src, err := a.openStore()
			if err != nil {
				return err
			}
			opts, err := a.storeOptions()
			if err != nil {
				return err
			}

			dst := hktree.New(append(opts, hktree.WithPath(args[0]))...)
			if err := dst.Open(false); err != nil {
				return err
			}
			if err := dst.Init(); err != nil {
				return fmt.Errorf("init destination storage: %w", err)
			}
			defer dst.Close()

			return common.Copy(dst, src)
		},
	}
}

func storeAndKey(cmd *cobra.Command, s string) (*hktree.Tree, key.Key, error) {
	store, err := appFrom(cmd).openStore()
	if err != nil {
		return nil, nil, err
	}
	k, err := key.DecodeSized(s, store.Hasher().Size())
	if err != nil {
		return nil, nil, fmt.Errorf("invalid key %q: %w", s, err)
	}
	return store, k, nil
}

func openInput(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == stdinArg {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func printKey(cmd *cobra.Command, k key.Key) {
	if asHex, _ := cmd.Flags().GetBool(hexFlag); asHex {
		cmd.Println(k.Hex())
		return
	}
	cmd.Println(k)
}
