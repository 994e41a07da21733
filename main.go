package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ccfrost/imgup/commands"
	"github.com/ccfrost/imgup/imgupconfig"
	"github.com/spf13/cobra"
)

const imgup = "imgup"

func main() {
	var configPath string
	var config imgupconfig.ImgupConfig

	rootCmd := cobra.Command{
		Use:   imgup,
		Short: "Upload images to an image hosting service and build an HTML gallery",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			config, err = imgupconfig.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := config.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file")

	uploadCmd := cobra.Command{
		Use:   "upload [dir]",
		Short: "Upload all images in a directory and generate the gallery",
		Long: `Upload every image in the directory (default: current directory) to Imgur,
as a resized full image plus a thumbnail, then write an HTML gallery of all
uploaded images. Already uploaded images are skipped, so an interrupted run
can simply be restarted.`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			levelString, err := cmd.Flags().GetString("console-log-level")
			if err != nil {
				fmt.Fprintln(os.Stderr, "error: invalid console-log-level flag:", err)
				os.Exit(1)
			}
			commands.SetConsoleLogLevel(levelString)

			srcDir := ""
			if len(args) == 1 {
				srcDir = args[0]
			} else {
				srcDir, err = os.Getwd()
				if err != nil {
					fmt.Fprintln(os.Stderr, "error: cannot determine working directory:", err)
					os.Exit(1)
				}
			}

			outPath, err := runUpload(cmd.Context(), config, srcDir)
			if errors.Is(err, commands.ErrTrackerLocked) {
				fmt.Fprintf(os.Stderr, "Another instance of %s is already running in %s\n", imgup, srcDir)
				os.Exit(1)
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			}
			fmt.Printf("Image gallery generated into %s\n", outPath)
		},
	}
	uploadCmd.Flags().StringP("console-log-level", "c", "", "Numeric console logging level (slog levels; default info)")
	rootCmd.AddCommand(&uploadCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// runUpload drives one upload run over srcDir: open the tracker (acquiring
// exclusive access to the directory), upload what is missing, and render the
// gallery from all recorded entries. The tracker is released on every path.
func runUpload(ctx context.Context, config imgupconfig.ImgupConfig, srcDir string) (string, error) {
	tracker, err := commands.OpenUploadTracker(srcDir)
	if err != nil {
		return "", err
	}
	defer tracker.Close()

	backend := commands.NewImgurBackend(config.Imgur.ClientId)
	entries, err := commands.UploadImages(ctx, config, srcDir, tracker, backend)
	if err != nil {
		return "", err
	}

	return commands.WriteGallery(config, srcDir, entries)
}
