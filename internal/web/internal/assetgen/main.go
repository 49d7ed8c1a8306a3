// Command assetgen builds the browser viewer into the embedded static
// directory of the web package: viewer.wasm compiled from cmd/glance-viewer
// and the wasm_exec.js loader shipped with the toolchain that compiled it.
// It runs through go generate ./internal/web.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const defaultViewerPackage = "github.com/verustcode/glance/cmd/glance-viewer"

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var out, pkg string
	cmd := &cobra.Command{
		Use:          "assetgen",
		Short:        "Build viewer.wasm and copy wasm_exec.js",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return generate(cmd.Context(), out, pkg)
		},
	}
	cmd.Flags().StringVar(&out, "out", "static", "output directory")
	cmd.Flags().StringVar(&pkg, "pkg", defaultViewerPackage, "viewer main package")
	return cmd
}

func generate(ctx context.Context, out, pkg string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}

	goroot, err := goRoot(ctx)
	if err != nil {
		return err
	}
	loader, err := wasmExecPath(goroot)
	if err != nil {
		return err
	}
	if err := copyFile(loader, filepath.Join(out, "wasm_exec.js")); err != nil {
		return err
	}

	target := filepath.Join(out, "viewer.wasm")
	build := exec.CommandContext(ctx, "go", "build", "-trimpath", "-ldflags=-s -w", "-o", target, pkg)
	build.Env = wasmEnv(os.Environ())
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		return fmt.Errorf("failed to build %s: %w", pkg, err)
	}

	color.New(color.FgGreen).Printf("✓ %s and wasm_exec.js written to %s\n", filepath.Base(target), out)
	return nil
}

// goRoot prefers the GOROOT go generate exports
func goRoot(ctx context.Context) (string, error) {
	if root := os.Getenv("GOROOT"); root != "" {
		return root, nil
	}
	raw, err := exec.CommandContext(ctx, "go", "env", "GOROOT").Output()
	if err != nil {
		return "", fmt.Errorf("failed to resolve GOROOT: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// wasmExecPath finds the loader; Go 1.24 moved it from misc/wasm to lib/wasm
func wasmExecPath(goroot string) (string, error) {
	for _, dir := range []string{"lib", "misc"} {
		p := filepath.Join(goroot, dir, "wasm", "wasm_exec.js")
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("wasm_exec.js not found under %s", goroot)
}

// wasmEnv targets js/wasm, replacing any GOOS or GOARCH from the caller
func wasmEnv(environ []string) []string {
	env := make([]string, 0, len(environ)+2)
	for _, kv := range environ {
		if strings.HasPrefix(kv, "GOOS=") || strings.HasPrefix(kv, "GOARCH=") {
			continue
		}
		env = append(env, kv)
	}
	return append(env, "GOOS=js", "GOARCH=wasm")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
