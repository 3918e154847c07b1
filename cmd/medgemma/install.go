package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	medgemma "github.com/kintamed/medgemma-runtime"
)

func runInstall(cmd *cobra.Command, args []string) error {
	runtimeURL, version := args[0], args[1]

	libDir := os.Getenv("MEDGEMMA_LIB_DIR")
	if libDir == "" {
		libDir = medgemma.DefaultLibDir()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Minute)
	defer cancel()

	if err := medgemma.InstallRuntime(ctx, runtimeURL, version, libDir); err != nil {
		return fmt.Errorf("install runtime: %w", err)
	}

	fmt.Printf("installed medgemma runtime %s into %s\n", version, libDir)

	return nil
}
