package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/omelentjeff/product-management-app/internal/apiclient"
	"github.com/omelentjeff/product-management-app/internal/draft"
	"github.com/omelentjeff/product-management-app/internal/model"
	"github.com/omelentjeff/product-management-app/internal/suggest"
)

// maxParallelGets bounds concurrent requests for "get" with several ids.
const maxParallelGets = 4

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", s)
	}
	return id, nil
}

func (a *app) listCmd() *cobra.Command {
	var (
		page, size int
		sortSpec   string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show one page of products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if page < 1 {
				return fmt.Errorf("invalid page %d", page)
			}
			if size <= 0 {
				size = a.cfg.List.PageSize
			}
			if sortSpec == "" {
				sortSpec = a.cfg.List.Sort
			}
			key, dir, err := model.ParseSort(sortSpec)
			if err != nil {
				return err
			}
			q := model.Query{Page: page, PageSize: size, SortKey: key, SortDir: dir}
			p, err := a.api.List(cmd.Context(), page-1, size, q.SortParam())
			if err != nil {
				return err
			}
			if asJSON {
				printJSON(a.out, p)
				return nil
			}
			printTable(a.out, p.Content)
			printPageFooter(a.out, page, p.TotalPages, p.TotalElements)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&size, "size", 0, "page size (default from config)")
	cmd.Flags().StringVar(&sortSpec, "sort", "", "sort as key,asc|desc (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw page as JSON")
	return cmd
}

func (a *app) listAllCmd() *cobra.Command {
	var (
		size     int
		sortSpec string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list-all",
		Short: "Fetch every page and show all products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if size <= 0 {
				size = a.cfg.List.PageSize
			}
			if sortSpec == "" {
				sortSpec = a.cfg.List.Sort
			}
			if _, _, err := model.ParseSort(sortSpec); err != nil {
				return err
			}
			all, err := a.api.ListAll(cmd.Context(), size, sortSpec)
			if err != nil {
				return err
			}
			if asJSON {
				printJSON(a.out, all)
				return nil
			}
			printTable(a.out, all)
			fmt.Fprintf(a.out, "%s products\n", humanize.Comma(int64(len(all))))
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 0, "page size used while fetching (default from config)")
	cmd.Flags().StringVar(&sortSpec, "sort", "", "sort as key,asc|desc (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>...",
		Short: "Show products by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, len(args))
			for i, s := range args {
				id, err := parseID(s)
				if err != nil {
					return err
				}
				ids[i] = id
			}
			out, err := a.getMany(cmd.Context(), ids)
			if err != nil {
				return err
			}
			if len(out) == 1 {
				printJSON(a.out, out[0])
				return nil
			}
			printJSON(a.out, out)
			return nil
		},
	}
}

// getMany fetches ids concurrently, keeping argument order. The first
// failure cancels the rest.
func (a *app) getMany(ctx context.Context, ids []int64) ([]model.Product, error) {
	out := make([]model.Product, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelGets)
	for i, id := range ids {
		g.Go(func() error {
			p, err := a.api.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("product %d: %w", id, err)
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *app) searchCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search products by name, manufacturer or GTIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.api.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				printJSON(a.out, p)
				return nil
			}
			if len(p.Content) == 0 {
				fmt.Fprintln(a.out, "no products found")
				return nil
			}
			printTable(a.out, p.Content)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw result as JSON")
	return cmd
}

func (a *app) suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Show search suggestions for a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := suggest.New(a.api, suggest.Options{
				Limit:  a.cfg.Suggest.Limit,
				Logger: a.log.Named("suggest"),
			})
			defer sc.Close()
			names, err := sc.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(a.out, n)
			}
			return nil
		},
	}
}

// editFlags are shared by create and update.
type editFlags struct {
	file  string
	sets  []string
	image string
}

func (f *editFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "product JSON document (- for stdin)")
	cmd.Flags().StringArrayVar(&f.sets, "set", nil, "field=value, repeatable (e.g. --set weight=500 --set sodium=)")
	cmd.Flags().StringVar(&f.image, "image", "", "product photo to upload")
}

// apply loads the document and field overrides into d.
func (f *editFlags) apply(a *app, d *draft.Draft) error {
	if f.file != "" {
		data, err := readInput(a.in, f.file)
		if err != nil {
			return err
		}
		if err := d.ApplyJSON(data); err != nil {
			return err
		}
	}
	for _, kv := range f.sets {
		k, v, ok := cutSet(kv)
		if !ok {
			return fmt.Errorf("invalid --set %q, want field=value", kv)
		}
		if err := d.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (f *editFlags) loadImage() (*apiclient.Image, error) {
	if f.image == "" {
		return nil, nil
	}
	return apiclient.ImageFromFile(f.image)
}

func cutSet(kv string) (string, string, bool) {
	k, v, ok := strings.Cut(kv, "=")
	return strings.TrimSpace(k), v, ok && strings.TrimSpace(k) != ""
}

// reportDraft marks the editor sections holding field errors.
func (a *app) reportDraft(d *draft.Draft, err error) error {
	if d.ApplyErrors(err) {
		for _, s := range d.SectionErrors() {
			fmt.Fprintf(a.errOut, "%s: check highlighted fields\n", s)
		}
	}
	return err
}

func (a *app) createCmd() *cobra.Command {
	var f editFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			d := draft.Empty()
			if err := f.apply(a, d); err != nil {
				return err
			}
			img, err := f.loadImage()
			if err != nil {
				return err
			}
			p, err := a.api.Create(cmd.Context(), d.Input(), img)
			if err != nil {
				return a.reportDraft(d, err)
			}
			a.log.Info("product created", zap.Int64("id", p.ID))
			printJSON(a.out, p)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var f editFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a product (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cur, err := a.api.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			d := draft.FromProduct(cur)
			if err := f.apply(a, d); err != nil {
				return err
			}
			img, err := f.loadImage()
			if err != nil {
				return err
			}
			if !d.Dirty() && img == nil {
				return errors.New("nothing to update")
			}
			p, err := a.api.Update(cmd.Context(), id, d.Input(), img)
			if err != nil {
				return a.reportDraft(d, err)
			}
			a.log.Info("product updated", zap.Int64("id", p.ID))
			printJSON(a.out, p)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) uploadImageCmd() *cobra.Command {
	var image string
	cmd := &cobra.Command{
		Use:   "upload-image <id>",
		Short: "Replace a product photo (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			img, err := apiclient.ImageFromFile(image)
			if err != nil {
				return err
			}
			p, err := a.api.UploadImage(cmd.Context(), id, *img)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.errOut, "uploaded %s (%s)\n", img.Filename, humanize.Bytes(uint64(img.Size)))
			printJSON(a.out, p)
			return nil
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "image file")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.api.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "deleted", id)
			return nil
		},
	}
}
