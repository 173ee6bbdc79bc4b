//go:build ignore

// build.go - chxlsx build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: build, test, clean, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	module  = "chxlsx"
	mainPkg = "./cmd/chxlsx"
	distDir = "dist"
)

// releasePlatforms are the GOOS/GOARCH pairs built by the release target
var releasePlatforms = []string{
	"linux/amd64",
	"linux/arm64",
	"darwin/arm64",
	"windows/amd64",
}

var (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
)

func main() {
	target := flag.String("target", "build", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	printHeader()
	startTime := time.Now()

	var err error
	switch *target {
	case "build":
		err = build(runtime.GOOS, runtime.GOARCH, *verbose)
	case "test":
		err = runTests(*verbose)
	case "clean":
		err = os.RemoveAll(distDir)
	case "release":
		err = release(*verbose)
	default:
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "          chxlsx - Build System            " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func showHelp() {
	fmt.Println("Usage: go run build.go -target=<build|test|clean|release> [-v]")
}

// ldflags stamps the build time and commit into pkg/contracts
func ldflags() string {
	commit := "unknown"
	if out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output(); err == nil {
		commit = strings.TrimSpace(string(out))
	}
	pkg := module + "/pkg/contracts"
	return fmt.Sprintf("-s -w -X %s.BuildTime=%s -X %s.GitCommit=%s",
		pkg, time.Now().UTC().Format(time.RFC3339), pkg, commit)
}

func build(goos, goarch string, verbose bool) error {
	name := module
	if goos == "windows" {
		name += ".exe"
	}
	out := filepath.Join(distDir, goos+"_"+goarch, name)
	printInfo(fmt.Sprintf("Building %s", out))

	args := []string{"build", "-trimpath", "-ldflags", ldflags(), "-o", out}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, mainPkg)

	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(), "GOOS="+goos, "GOARCH="+goarch, "CGO_ENABLED=0")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build %s/%s failed: %w", goos, goarch, err)
	}
	return nil
}

func release(verbose bool) error {
	for _, platform := range releasePlatforms {
		parts := strings.SplitN(platform, "/", 2)
		if err := build(parts[0], parts[1], verbose); err != nil {
			return err
		}
	}
	return nil
}

func runTests(verbose bool) error {
	printInfo("Running tests...")
	args := []string{"test", "-race", "./..."}
	if verbose {
		args = append(args, "-v")
	}
	cmd := exec.Command("go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tests failed: %w", err)
	}
	return nil
}
