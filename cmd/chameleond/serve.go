package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sensics/cros-chameleon/config"
	"github.com/sensics/cros-chameleon/datarecording"
	"github.com/sensics/cros-chameleon/driver"
	"github.com/sensics/cros-chameleon/flow"
	"github.com/sensics/cros-chameleon/fpga"
	"github.com/sensics/cros-chameleon/i2c"
	"github.com/sensics/cros-chameleon/ids"
	"github.com/sensics/cros-chameleon/io"
	"github.com/sensics/cros-chameleon/memory"
	"github.com/sensics/cros-chameleon/pixeldump"
	"github.com/sensics/cros-chameleon/rx"
)

var serveFlags struct {
	configPath string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fixture daemon",
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.configPath,
		"config", "c", "/etc/chameleond/board.yaml", "board configuration file")
	rootCmd.AddCommand(serveCmd)
}

func serve() {
	cfg, err := config.Load(serveFlags.configPath)
	if err != nil {
		log.Fatal(err)
	}

	bank := memory.NewMmapBank(fpga.RegWindowBase, fpga.RegWindowSize)
	bus := i2c.NewDevBus(cfg.I2CBusNumber)
	fpgaCtrl := fpga.NewController(bank)
	muxIo := io.NewMuxIo(bus)
	powerIo := io.NewPowerIo(bus)

	builder := driver.MakeBuilder().
		WithDefaultEdidFile(cfg.DefaultEdidPath).
		WithPixelDumpRunner(pixeldump.NewToolRunner(cfg.PixelDumpTool))

	for _, port := range cfg.PortIDs() {
		builder = builder.WithFlow(buildFlow(port, fpgaCtrl, muxIo, powerIo, bus))
	}

	if cfg.RecordingDBPath != "" {
		recorder := datarecording.NewEventRecorder(
			datarecording.New(cfg.RecordingDBPath))
		builder = builder.WithRecorder(recorder)
	}

	d := builder.Build()
	if err := d.Initialize(); err != nil {
		log.Fatal(err)
	}

	if cfg.MonitorPort != 0 {
		// Hand the driver to the monitor only; all control stays on the RPC
		// boundary served elsewhere.
		startMonitor(d, cfg.MonitorPort)
	}

	log.Printf("chameleond up, serving ports %v", cfg.Ports)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	atexit.Exit(0)
}

func buildFlow(
	port ids.PortID,
	fpgaCtrl *fpga.Controller,
	muxIo *io.MuxIo,
	powerIo *io.PowerIo,
	bus i2c.Bus,
) flow.InputFlow {
	switch port {
	case ids.DP1:
		return flow.NewDpFlow(port, fpgaCtrl, muxIo, powerIo,
			rx.NewDpRx(bus, rx.Dp1RxAddr, rx.Dp1EdidAddr))
	case ids.DP2:
		return flow.NewDpFlow(port, fpgaCtrl, muxIo, powerIo,
			rx.NewDpRx(bus, rx.Dp2RxAddr, rx.Dp2EdidAddr))
	case ids.HDMI:
		return flow.NewHdmiFlow(fpgaCtrl, muxIo, powerIo, rx.NewHdmiRx(bus))
	case ids.VGA:
		return flow.NewVgaFlow(fpgaCtrl, muxIo, powerIo, rx.NewVgaRx(bus))
	default:
		log.Panicf("no flow for port %s", port)
		return nil
	}
}
