// Command catengine-bench is an example host exercising the engine
// facade end-to-end against an in-memory mock device transport,
// mirroring the teacher's cobra-based command-tree layout.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ormasoftchile/catengine/pkg/callback"
	"github.com/ormasoftchile/catengine/pkg/engine"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "catengine-bench",
	Short: "Run a scripted test bench against a mock device transport",
	Long:  "catengine-bench drives the orchestration engine with a built-in mock host so its step-executor loop, branching, and check rules can be exercised without real hardware.",
}

var (
	flagSlots     int
	flagReportOut string
)

func init() {
	runCmd.Flags().IntVar(&flagSlots, "slots", 1, "number of test slots")
	runCmd.Flags().StringVar(&flagReportOut, "report", "", "write a YAML bench report to this path")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the built-in demo sequence",
	RunE:  runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	eng, err := engine.New(flagSlots)
	if err != nil {
		return err
	}
	defer eng.Close()

	host := newMockHost()
	host.attach(eng)
	eng.RegisterEngineTaskCallback(host.EngineTask)
	eng.RegisterUIUpdateCallback(func(snapshotJSON []byte) {
		var pretty map[string]any
		if json.Unmarshal(snapshotJSON, &pretty) == nil {
			fmt.Printf("ui update: %s\n", snapshotJSON)
		}
	})
	eng.RegisterLogCallback(func(ts int64, level, source, message string) {
		fmt.Printf("[%s] %s: %s\n", level, source, message)
	})

	if err := eng.AddDeviceType(demoDeviceType()); err != nil {
		return err
	}
	for _, step := range demoSteps() {
		if err := eng.AddTestStep(step); err != nil {
			return err
		}
	}

	if err := eng.StartAllSlots(); err != nil {
		return err
	}
	// The demo sequence completes quickly against the mock host; give
	// it a generous ceiling rather than wiring a completion signal,
	// which would require exposing executor internals this example
	// intentionally keeps out of view.
	time.Sleep(500 * time.Millisecond)

	report := eng.BuildReport()
	out, err := engine.WriteReportYAML(report)
	if err != nil {
		return err
	}
	fmt.Print(string(out))

	if flagReportOut != "" {
		return os.WriteFile(flagReportOut, out, 0o644)
	}
	return nil
}

// mockHost simulates a device transport: every engine-task request is
// accepted at once and answered 10 ms later, from a separate goroutine,
// with a canned voltage reading.
type mockHost struct{ eng *engine.Engine }

func newMockHost() *mockHost { return &mockHost{} }

func (h *mockHost) attach(eng *engine.Engine) { h.eng = eng }

func (h *mockHost) EngineTask(slotID uint32, taskID uint64, deviceType, deviceAddress, pluginID, action string, payload []byte, timeoutMs int64) int32 {
	go func() {
		time.Sleep(10 * time.Millisecond)
		if h.eng != nil {
			_ = h.eng.SubmitResult(slotID, taskID, []byte("3.30"))
		}
	}()
	return 0
}

var _ callback.EngineTaskFunc = (*mockHost)(nil).EngineTask
