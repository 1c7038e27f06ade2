//go:build ignore

// build.go - issuepulse build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, web, issuereport, test, clean

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

const module = "issuepulse"

// executables maps each cmd directory to its output binary name
var executables = map[string]string{
	"web":         "issuepulse-web",
	"issuereport": "issuereport",
}

var distDir = "dist"

func main() {
	target := flag.String("target", "all", "build target (all, web, issuereport, test, clean)")
	verbose := flag.Bool("v", false, "verbose output")
	flag.Parse()

	printInfo(fmt.Sprintf("target=%s go=%s os=%s/%s", *target, runtime.Version(), runtime.GOOS, runtime.GOARCH))

	var err error
	switch *target {
	case "all":
		for _, name := range []string{"web", "issuereport"} {
			if err = buildExecutable(name, *verbose); err != nil {
				break
			}
		}
	case "web", "issuereport":
		err = buildExecutable(*target, *verbose)
	case "test":
		err = runTests(*verbose)
	case "clean":
		err = os.RemoveAll(distDir)
	default:
		err = fmt.Errorf("unknown target %q", *target)
	}

	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	printSuccess("done")
}

func printInfo(msg string)    { fmt.Printf("[INFO] %s\n", msg) }
func printSuccess(msg string) { fmt.Printf("[OK] %s\n", msg) }
func printError(msg string)   { fmt.Fprintf(os.Stderr, "[ERROR] %s\n", msg) }

func buildExecutable(name string, verbose bool) error {
	output := executables[name]
	if runtime.GOOS == "windows" {
		output += ".exe"
	}

	ldflags := strings.Join([]string{
		"-s -w",
		fmt.Sprintf("-X %s/pkg/contracts.BuildTime=%s", module, time.Now().UTC().Format(time.RFC3339)),
		fmt.Sprintf("-X %s/pkg/contracts.GitCommit=%s", module, gitOutput("rev-parse", "--short", "HEAD")),
		fmt.Sprintf("-X %s/pkg/contracts.GitBranch=%s", module, gitOutput("rev-parse", "--abbrev-ref", "HEAD")),
	}, " ")

	args := []string{"build", "-ldflags", ldflags, "-o", filepath.Join(distDir, output), "./cmd/" + name}
	if verbose {
		args = append(args, "-v")
	}

	printInfo("building " + output)
	return runGo(args)
}

func runTests(verbose bool) error {
	args := []string{"test", "-race", "./..."}
	if verbose {
		args = append(args, "-v")
	}
	return runGo(args)
}

func runGo(args []string) error {
	cmd := exec.Command("go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go %s: %w", args[0], err)
	}
	return nil
}

func gitOutput(args ...string) string {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}
