package main

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"tiffmerge/internal/models"
	"tiffmerge/pkg/config"
	"tiffmerge/pkg/logging"
	"tiffmerge/pkg/pipeline"
	"tiffmerge/pkg/pixelcodec"
)

// --- Global Command Variables ---
var (
	configPath string
	logLevel   string
	channelA   string
	channelB   string

	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "tiffmerge",
		Short: "Merge microscopy tile channels through a pixel-text pipeline",
		Long: `tiffmerge decodes multi-channel TIFF tiles into pixel-text files,
sums two channels of every tile-set and writes the result back as TIFF.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run decode, index, merge and encode in order",
		RunE:  runPipeline,
	}

	decodeCmd = &cobra.Command{
		Use:   "decode",
		Short: "Decode raw tiles into pixel-text files",
		RunE:  runDecode,
	}

	indexCmd = &cobra.Command{
		Use:   "index",
		Short: "List the tile-sets and channels found among pixel-text files",
		RunE:  runIndex,
	}

	mergeCmd = &cobra.Command{
		Use:   "merge",
		Short: "Sum two channels of every tile-set",
		RunE:  runMerge,
	}

	encodeCmd = &cobra.Command{
		Use:   "encode",
		Short: "Encode merged pixel-text files as TIFF",
		RunE:  runEncode,
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	configInitCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigInit,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "tiffmerge.yaml", "configuration file (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")
	for _, cmd := range []*cobra.Command{runCmd, mergeCmd} {
		cmd.Flags().StringVar(&channelA, "channel-a", "", "first channel to merge (overrides config)")
		cmd.Flags().StringVar(&channelB, "channel-b", "", "second channel to merge (overrides config)")
	}

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(runCmd, decodeCmd, indexCmd, mergeCmd, encodeCmd, configCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd == configInitCmd {
		return nil
	}

	loaded, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if channelA != "" {
		loaded.Merge.ChannelA = channelA
	}
	if channelB != "" {
		loaded.Merge.ChannelB = channelB
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	level := loaded.Output.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	if !logging.SetLevel(level) {
		log.Warn().Str("level", level).Msg("unknown log level, keeping default")
	}

	cfg = loaded
	return nil
}

// newDriver builds pipeline parameters from the loaded configuration
func newDriver() (*pipeline.Driver, error) {
	overflow, err := pixelcodec.ParseOverflowPolicy(cfg.Encode.Overflow)
	if err != nil {
		return nil, err
	}

	params := &pipeline.Params{
		RawDir:           cfg.Paths.RawDir,
		ChannelTextDir:   cfg.Paths.ChannelTextDir,
		ReferenceTextDir: cfg.Paths.ReferenceTextDir,
		ReferenceSuffix:  cfg.Decode.ReferenceSuffix,
		TextSuffix:       cfg.Decode.TextSuffix,
		MergedTextDir:    cfg.Paths.MergedTextDir,
		MergedImageDir:   cfg.Paths.MergedImageDir,
		ChannelA:         models.ChannelID(cfg.Merge.ChannelA),
		ChannelB:         models.ChannelID(cfg.Merge.ChannelB),
		Overflow:         overflow,
		Fallback: models.Dimensions{
			Width:  cfg.Encode.FallbackWidth,
			Height: cfg.Encode.FallbackHeight,
		},
	}
	return pipeline.NewDriver(params, nil), nil
}

// writeMetrics flushes the run's collectors when a textfile is configured
func writeMetrics(d *pipeline.Driver) {
	if cfg.Output.MetricsTextfile == "" {
		return
	}
	d.Metrics().Finish()
	if err := d.Metrics().WriteTextfile(cfg.Output.MetricsTextfile); err != nil {
		log.Warn().Err(err).Str("file", cfg.Output.MetricsTextfile).Msg("failed to write metrics")
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	d, err := newDriver()
	if err != nil {
		return err
	}
	defer writeMetrics(d)

	report, err := d.Run()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s completed in %.2f seconds\n", report.RunID, report.Elapsed.Seconds())
	fmt.Fprintf(out, "- Decoded tiles:     %d (%d failed)\n", len(report.Decode.Written), len(report.Decode.Failed))
	fmt.Fprintf(out, "- Tile-sets indexed: %d\n", report.Index.TileSets)
	fmt.Fprintf(out, "- Merged tile-sets:  %d (%d skipped)\n", len(report.Merge.Merged), len(report.Merge.Skipped))
	fmt.Fprintf(out, "- Encoded images:    %d (%d failed, %d skipped)\n",
		len(report.Encode.Written), len(report.Encode.Failed), len(report.Encode.Skipped))
	return nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	d, err := newDriver()
	if err != nil {
		return err
	}
	defer writeMetrics(d)

	report, err := d.DecodeStage()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Decoded %d tiles, %d failed\n", len(report.Written), len(report.Failed))
	return nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	d, err := newDriver()
	if err != nil {
		return err
	}

	cm, report, err := d.IndexStage()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, set := range cm.SortedTileSets() {
		fmt.Fprintf(out, "%s:", set)
		for _, ch := range sortedChannels(cm[set]) {
			e := cm[set][ch]
			if e.HasDims {
				fmt.Fprintf(out, " %s(%s)", ch, e.Dims)
			} else {
				fmt.Fprintf(out, " %s", ch)
			}
		}
		fmt.Fprintln(out)
	}
	for _, dup := range report.Duplicates {
		fmt.Fprintf(out, "duplicate %s/%s: kept %s, replaced %s\n",
			dup.Match.TileSet, dup.Match.Channel, dup.Kept, dup.Replaced)
	}
	return nil
}

func sortedChannels(channels map[models.ChannelID]models.ChannelEntry) []models.ChannelID {
	ids := make([]models.ChannelID, 0, len(channels))
	for id := range channels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func runMerge(cmd *cobra.Command, args []string) error {
	d, err := newDriver()
	if err != nil {
		return err
	}
	defer writeMetrics(d)

	cm, _, err := d.IndexStage()
	if err != nil {
		return err
	}
	report, err := d.MergeStage(cm)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, m := range report.Merged {
		fmt.Fprintf(out, "merged %s -> %s (%d pixels, %d over 255)\n",
			m.Result.TileSet, m.Path, m.Summary.Count, m.Summary.Overflowed)
	}
	for _, s := range report.Skipped {
		fmt.Fprintf(out, "skipped %s: %s\n", s.TileSet, s.Reason)
	}
	return nil
}

func runEncode(cmd *cobra.Command, args []string) error {
	d, err := newDriver()
	if err != nil {
		return err
	}
	defer writeMetrics(d)

	report, err := d.EncodeStage()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Encoded %d images, %d failed, %d skipped\n",
		len(report.Written), len(report.Failed), len(report.Skipped))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.CreateDefaultConfigFile(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to %s\n", path)
	return nil
}
