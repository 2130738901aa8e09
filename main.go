package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"TimeBounce/internal/server"
	"TimeBounce/internal/sim"
)

// Float flags default to NaN so "not set" is distinguishable from an explicit
// zero (gravity 0 and drag 0 are both legitimate choices).
var (
	serveAddr   string
	serveConfig string

	flagGravity float64
	flagDamping float64
	flagAir     float64
	flagHz      float64
	flagStartY  float64
	flagHistory float64

	runDuration float64
	runSampleHz float64
	runCSVPath  string
	runPlotRows int
)

var rootCmd = &cobra.Command{
	Use:   "timebounce",
	Short: "Rewindable bouncing-ball simulation",
	Long: "timebounce runs a deterministic bouncing-ball simulation whose time\n" +
		"axis can be stepped, rewound and jumped. Serve it to browser viewers\n" +
		"over WebSocket, or run it headless and plot the trajectory.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation to browser viewers over WebSocket",
	Run: func(cmd *cobra.Command, args []string) {
		app := server.DefaultAppConfig()
		if serveConfig != "" {
			app.SimConfigPath = serveConfig
		}
		app.Overrides = server.SimOverrides{
			Gravity:        optional(flagGravity),
			BounceDamping:  optional(flagDamping),
			AirResistance:  optional(flagAir),
			SubstepHz:      optional(flagHz),
			StartHeight:    optional(flagStartY),
			HistorySeconds: optional(flagHistory),
		}
		if err := server.StartApp(serveAddr, app); err != nil {
			log.Fatalf("serve: %v", err)
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation headless and plot the ball's height",
	RunE:  runHeadless,
}

func optional(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func headlessConfig() sim.Config {
	cfg := sim.DefaultConfig()
	if !math.IsNaN(flagGravity) {
		cfg.Gravity = flagGravity
	}
	if !math.IsNaN(flagDamping) {
		cfg.BounceDamping = flagDamping
	}
	if !math.IsNaN(flagAir) {
		cfg.AirResistance = flagAir
	}
	if !math.IsNaN(flagHz) && flagHz > 0 {
		cfg.SubstepDt = 1 / flagHz
	}
	if !math.IsNaN(flagStartY) {
		cfg.StartHeight = flagStartY
	}
	if !math.IsNaN(flagHistory) {
		cfg.HistoryKeepS = flagHistory
	}
	return cfg
}

func runHeadless(cmd *cobra.Command, args []string) error {
	if runDuration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", runDuration)
	}
	if runSampleHz <= 0 {
		return fmt.Errorf("sample rate must be positive, got %v", runSampleHz)
	}

	ctrl, err := sim.NewController(headlessConfig())
	if err != nil {
		return err
	}

	var csvWriter *csv.Writer
	if runCSVPath != "" {
		f, err := os.Create(runCSVPath)
		if err != nil {
			return fmt.Errorf("create csv: %w", err)
		}
		defer f.Close()
		csvWriter = csv.NewWriter(f)
		defer csvWriter.Flush()
		if err := csvWriter.Write([]string{"time", "y", "velocity_y", "height", "kinetic", "potential", "total"}); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}

	sampleDt := 1 / runSampleHz
	samples := int(math.Round(runDuration * runSampleHz))

	heights := make([]float64, 0, samples+1)
	bounces := 0
	snap := ctrl.GetState()
	heights = append(heights, snap.Height)
	if err := writeCSVRow(csvWriter, snap); err != nil {
		return err
	}

	prevVY := snap.Ball.VelocityY
	for i := 0; i < samples; i++ {
		res, err := ctrl.Step(sampleDt)
		if err != nil {
			return err
		}
		snap = res.Snapshot
		heights = append(heights, snap.Height)
		if prevVY < 0 && snap.Ball.VelocityY > 0 {
			bounces++
		}
		prevVY = snap.Ball.VelocityY
		if err := writeCSVRow(csvWriter, snap); err != nil {
			return err
		}
	}

	fmt.Println(asciigraph.Plot(heights,
		asciigraph.Height(runPlotRows),
		asciigraph.Width(72),
		asciigraph.Caption(fmt.Sprintf("height above ground over %.2fs", snap.Time)),
	))
	fmt.Println()

	info := ctrl.History()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "simulated time\t%.3f s\n", snap.Time)
	fmt.Fprintf(w, "final height\t%.2f\n", snap.Height)
	fmt.Fprintf(w, "final velocity\t%.2f\n", snap.Ball.VelocityY)
	fmt.Fprintf(w, "total energy\t%.1f\n", snap.Energy.Total)
	fmt.Fprintf(w, "bounces\t%d\n", bounces)
	fmt.Fprintf(w, "history frames\t%d of %d\n", info.FramesStored, info.MaxFrames)
	return w.Flush()
}

func writeCSVRow(w *csv.Writer, snap sim.Snapshot) error {
	if w == nil {
		return nil
	}
	row := []string{
		strconv.FormatFloat(snap.Time, 'f', 6, 64),
		strconv.FormatFloat(snap.Ball.Y, 'f', 4, 64),
		strconv.FormatFloat(snap.Ball.VelocityY, 'f', 4, 64),
		strconv.FormatFloat(snap.Height, 'f', 4, 64),
		strconv.FormatFloat(snap.Energy.Kinetic, 'f', 4, 64),
		strconv.FormatFloat(snap.Energy.Potential, 'f', 4, 64),
		strconv.FormatFloat(snap.Energy.Total, 'f', 4, 64),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&flagGravity, "gravity", math.NaN(), "gravity magnitude (px/s²)")
	cmd.Flags().Float64Var(&flagDamping, "damping", math.NaN(), "bounce damping factor in [0,1]")
	cmd.Flags().Float64Var(&flagAir, "air", math.NaN(), "quadratic air resistance coefficient")
	cmd.Flags().Float64Var(&flagHz, "fps", math.NaN(), "integration sub-steps per second")
	cmd.Flags().Float64Var(&flagStartY, "start-y", math.NaN(), "drop height above ground")
	cmd.Flags().Float64Var(&flagHistory, "history", math.NaN(), "seconds of rewind history to retain")
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "path to a sim YAML config (default configs/sim.yaml)")
	addSimFlags(serveCmd)

	runCmd.Flags().Float64Var(&runDuration, "duration", 5, "seconds of simulation to run")
	runCmd.Flags().Float64Var(&runSampleHz, "sample-rate", 60, "trajectory samples per second")
	runCmd.Flags().StringVar(&runCSVPath, "csv", "", "write the sampled trajectory to this CSV file")
	runCmd.Flags().IntVar(&runPlotRows, "plot-height", 15, "rows of the terminal plot")
	addSimFlags(runCmd)

	rootCmd.AddCommand(serveCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
