package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetbatch/pkg/errors"
	"github.com/matzehuels/sheetbatch/pkg/host"
	"github.com/matzehuels/sheetbatch/pkg/pipeline"
)

// exportCommand creates the export command group.
func (c *CLI) exportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a view as an image or the model as IFC",
	}

	cmd.AddCommand(c.exportImageCommand())
	cmd.AddCommand(c.exportIFCCommand())

	return cmd
}

// exportImageCommand creates the "export image" subcommand.
func (c *CLI) exportImageCommand() *cobra.Command {
	var viewType, viewName, outputDir, format string
	var pixelSize, dpi int

	cmd := &cobra.Command{
		Use:   "image <project.toml>",
		Short: "Export the first view of a type as an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts, err := pipelineOptions(cfg, logger)
			if err != nil {
				return err
			}
			if viewType != "" {
				vt, err := host.ParseViewType(viewType)
				if err != nil {
					return errors.Wrap(errors.ErrCodeInvalidInput, err, "--view-type")
				}
				opts.Image.ViewType = vt
			}
			if viewName != "" {
				opts.Image.ViewName = viewName
			}
			if format != "" {
				ft, err := host.ParseImageFileType(format)
				if err != nil {
					return errors.Wrap(errors.ErrCodeInvalidInput, err, "--format")
				}
				opts.Image.FileType = ft
			}
			if pixelSize > 0 {
				opts.Image.PixelSize = pixelSize
			}
			if dpi > 0 {
				opts.Image.DPI = dpi
			}
			if outputDir != "" {
				if opts.Image.OutputDir, err = filepath.Abs(outputDir); err != nil {
					return errors.Wrap(errors.ErrCodeInvalidPath, err, "--output-dir")
				}
			}

			doc, err := openProject(args[0])
			if err != nil {
				return err
			}
			path, err := pipeline.NewRunner(nil, nil, logger).ExportImage(ctx, doc, opts)
			if err != nil {
				return err
			}
			printSuccess(c.out, "Exported %s view", opts.Image.ViewType)
			printFile(c.out, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&viewType, "view-type", "", "view type to export (overrides export.view_type)")
	cmd.Flags().StringVar(&viewName, "view-name", "", "exact view name (overrides export.view_name)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "output directory (overrides export.output_dir)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "image format: png, jpeg, bmp, tiff")
	cmd.Flags().IntVar(&pixelSize, "pixel-size", 0, "image width in pixels")
	cmd.Flags().IntVar(&dpi, "dpi", 0, "image resolution")
	cmd.ValidArgsFunction = completeProject
	_ = cmd.RegisterFlagCompletionFunc("view-type", completeValues(viewTypeNames...))
	_ = cmd.RegisterFlagCompletionFunc("format", completeValues(imageFormatNames...))
	_ = cmd.MarkFlagDirname("output-dir")
	return cmd
}

// exportIFCCommand creates the "export ifc" subcommand.
func (c *CLI) exportIFCCommand() *cobra.Command {
	var outputDir, filename, version string
	var baseQuantities bool

	cmd := &cobra.Command{
		Use:   "ifc <project.toml>",
		Short: "Export the model as an IFC file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts, err := pipelineOptions(cfg, logger)
			if err != nil {
				return err
			}
			if filename != "" {
				opts.Model.Filename = filename
			}
			if version != "" {
				v, err := host.ParseIFCVersion(version)
				if err != nil {
					return errors.Wrap(errors.ErrCodeInvalidInput, err, "--ifc-version")
				}
				opts.Model.Version = v
			}
			opts.Model.ExportBaseQuantities = baseQuantities
			if outputDir != "" {
				if opts.Model.OutputDir, err = filepath.Abs(outputDir); err != nil {
					return errors.Wrap(errors.ErrCodeInvalidPath, err, "--output-dir")
				}
			}

			doc, err := openProject(args[0])
			if err != nil {
				return err
			}
			path, err := pipeline.NewRunner(nil, nil, logger).ExportModel(ctx, doc, opts)
			if err != nil {
				return err
			}
			printSuccess(c.out, "Exported model %q", doc.Title())
			printFile(c.out, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "output directory (overrides export.output_dir)")
	cmd.Flags().StringVar(&filename, "filename", "", "file name (default: project title + .ifc)")
	cmd.Flags().StringVar(&version, "ifc-version", "", "IFC2x3 or IFC4")
	cmd.Flags().BoolVar(&baseQuantities, "base-quantities", false, "include base quantities")
	cmd.ValidArgsFunction = completeProject
	_ = cmd.RegisterFlagCompletionFunc("ifc-version", completeValues(ifcVersionNames...))
	_ = cmd.MarkFlagDirname("output-dir")
	return cmd
}
