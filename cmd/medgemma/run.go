package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	medgemma "github.com/kintamed/medgemma-runtime"
)

func runRun(cmd *cobra.Command, args []string) error {
	modelDir, prompt := args[0], args[1]

	imagePath, _ := cmd.Flags().GetString("image")
	maxTokens, _ := cmd.Flags().GetInt("max-tokens")
	temperature, _ := cmd.Flags().GetFloat32("temperature")
	topP, _ := cmd.Flags().GetFloat32("top-p")

	libDir := os.Getenv("MEDGEMMA_LIB_DIR")
	if libDir == "" {
		libDir = medgemma.DefaultLibDir()
	}

	if err := medgemma.Init(libDir, medgemma.LogNormal); err != nil {
		return fmt.Errorf("init runtime: %w", err)
	}

	engine, err := medgemma.NewEngine(modelDir, medgemma.EngineConfig{})
	if err != nil {
		return fmt.Errorf("load engine: %w", err)
	}
	defer engine.Unload()

	var image []byte
	if imagePath != "" {
		image, err = os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	ch, err := engine.GenerateStreaming(ctx, medgemma.GenerateParams{
		Prompt:      prompt,
		Image:       image,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	for ev := range ch {
		switch ev.Kind {
		case medgemma.EventToken:
			fmt.Print(ev.Text)
		case medgemma.EventImageError, medgemma.EventWarning:
			fmt.Fprintln(os.Stderr, ev.Text)
		case medgemma.EventError:
			return ev.Err
		}
	}

	fmt.Println()

	return nil
}
