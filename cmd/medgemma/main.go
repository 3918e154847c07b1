package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "medgemma",
	Short: "Run MedGemma on-device multimodal inference from the command line",
	Long:  "medgemma drives the on-device MedGemma vision-language runtime directly, without a server: point it at a model directory and a prompt, optionally with an image, and it streams generated text to stdout.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(version)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(installCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <MODEL_DIR> <PROMPT>",
	Short: "Run a single generation against a loaded model directory",
	Long: `Run a single generation against a loaded model directory

Environment Variables:
      MEDGEMMA_LIB_DIR  (default: lib/<os> next to the executable)  Directory holding the ONNX Runtime + GenAI shared libraries`,
	Args: cobra.RangeArgs(2, 2),
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("image", "", "Path to a JPEG/PNG file to ground the response in")
	runCmd.Flags().Int("max-tokens", 0, "Cap the number of generated tokens (0 uses the engine default)")
	runCmd.Flags().Float32("temperature", 0, "Override the sampler temperature (0 uses the engine default)")
	runCmd.Flags().Float32("top-p", 0, "Override the sampler top-p (0 uses the engine default)")
}

var installCmd = &cobra.Command{
	Use:   "install <RUNTIME_URL> <RUNTIME_VERSION>",
	Short: "Download the ONNX Runtime + GenAI native libraries for this platform",
	Long: `Download the ONNX Runtime + GenAI native libraries for this platform

Environment Variables:
      MEDGEMMA_LIB_DIR  (default: lib/<os> next to the executable)  Destination directory for the downloaded libraries`,
	Args: cobra.ExactArgs(2),
	RunE: runInstall,
}
