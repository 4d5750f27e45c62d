package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vjardin/zephyr-softsim/config"
	"github.com/vjardin/zephyr-softsim/fs"
)

var (
	logger     *slog.Logger
	configPath string
	dataDir    string
)

func init() {
	logOpts := &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}
	handler := slog.NewTextHandler(os.Stderr, logOpts)
	logger = slog.New(handler)

	flag.StringVar(&configPath, "config", "", "Path to the storage configuration file")
	flag.StringVar(&dataDir, "dir", "./ssfs-data", "Storage directory (used when no config file is given)")
}

func buildFS() (*fs.FS, error) {
	cfg := fs.Config{
		Logger:    logger,
		Directory: dataDir,
	}

	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", configPath, err)
		}
		level, _ := loaded.Level()
		cfg.BadgerLogLevel = level
		cfg.Directory = loaded.Directory
		cfg.StorageRoot = loaded.StorageRoot
		cfg.CacheTTL = loaded.CacheTTL
		cfg.IDBase = loaded.FS.IDBase
		cfg.IDSpan = loaded.FS.IDSpan
		cfg.MaxPathLength = loaded.FS.MaxPathLength
		cfg.MaxOpenFiles = loaded.FS.MaxOpenFiles
		cfg.MaxFileSize = loaded.FS.MaxFileSize
		cfg.EraseByte = byte(loaded.FS.EraseByte)
		cfg.ZeroFill = loaded.FS.ZeroFill
	}

	return fs.New(cfg)
}

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	ssfs, err := buildFS()
	if err != nil {
		logger.Error("Failed to initialize file storage", "error", err)
		os.Exit(1)
	}
	defer ssfs.Close()

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "put":
		handlePut(ssfs, cmdArgs)
	case "get":
		handleGet(ssfs, cmdArgs)
	case "rm":
		handleRm(ssfs, cmdArgs)
	case "stat":
		handleStat(ssfs, cmdArgs)
	case "exists":
		handleExists(ssfs, cmdArgs)
	case "mkdir":
		handleMkdir(ssfs, cmdArgs)
	case "root":
		handleRoot(ssfs, cmdArgs)
	default:
		logger.Error("Unknown command", "command", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: ssfs [flags] <command> [args...]\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nCommands:\n")
	fmt.Fprintf(os.Stderr, "  put <path> <localfile|->\n")
	fmt.Fprintf(os.Stderr, "  get <path> [localfile]\n")
	fmt.Fprintf(os.Stderr, "  rm <path>\n")
	fmt.Fprintf(os.Stderr, "  stat <path>\n")
	fmt.Fprintf(os.Stderr, "  exists <path>\n")
	fmt.Fprintf(os.Stderr, "  mkdir <path>\n")
	fmt.Fprintf(os.Stderr, "  root [newroot]\n")
}

func handlePut(ssfs *fs.FS, args []string) {
	if len(args) != 2 {
		logger.Error("put: requires <path> <localfile|->")
		printUsage()
		os.Exit(1)
	}
	path, local := args[0], args[1]

	var data []byte
	var err error
	if local == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(local)
	}
	if err != nil {
		logger.Error("put: failed to read input", "file", local, "error", err)
		os.Exit(1)
	}

	f, err := ssfs.Open(path, "w")
	if err != nil {
		logger.Error("put: open failed", "path", path, "error", err)
		os.Exit(1)
	}
	if _, err := f.Write(data); err != nil {
		logger.Error("put: write failed", "path", path, "error", err)
		f.Close()
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		logger.Error("put: close failed", "path", path, "error", err)
		os.Exit(1)
	}
	fmt.Printf("OK (%d bytes)\n", len(data))
}

func handleGet(ssfs *fs.FS, args []string) {
	if len(args) < 1 || len(args) > 2 {
		logger.Error("get: requires <path> [localfile]")
		printUsage()
		os.Exit(1)
	}
	path := args[0]

	f, err := ssfs.Open(path, "r")
	if err != nil {
		logger.Error("get: open failed", "path", path, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		logger.Error("get: size failed", "path", path, "error", err)
		os.Exit(1)
	}

	data := make([]byte, size)
	if _, err := f.ReadItems(data, 1, size); err != nil {
		logger.Error("get: read failed", "path", path, "error", err)
		os.Exit(1)
	}

	if len(args) == 2 {
		if err := os.WriteFile(args[1], data, 0644); err != nil {
			logger.Error("get: failed to write output", "file", args[1], "error", err)
			os.Exit(1)
		}
		fmt.Printf("OK (%d bytes)\n", len(data))
		return
	}
	os.Stdout.Write(data)
}

func handleRm(ssfs *fs.FS, args []string) {
	if len(args) != 1 {
		logger.Error("rm: requires <path>")
		printUsage()
		os.Exit(1)
	}
	if err := ssfs.Delete(args[0]); err != nil {
		logger.Error("rm: delete failed", "path", args[0], "error", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func handleStat(ssfs *fs.FS, args []string) {
	if len(args) != 1 {
		logger.Error("stat: requires <path>")
		printUsage()
		os.Exit(1)
	}
	path := args[0]

	size, err := ssfs.Size(path)
	if err != nil {
		var notFound *fs.ErrNotFound
		if errors.As(err, &notFound) {
			fmt.Printf("%s: not found (id 0x%04x)\n", path, ssfs.PathID(path))
			os.Exit(1)
		}
		logger.Error("stat: size failed", "path", path, "error", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d bytes (id 0x%04x)\n", path, size, ssfs.PathID(path))
}

func handleExists(ssfs *fs.FS, args []string) {
	if len(args) != 1 {
		logger.Error("exists: requires <path>")
		printUsage()
		os.Exit(1)
	}
	ok, err := ssfs.Exists(args[0])
	if err != nil {
		logger.Error("exists: check failed", "path", args[0], "error", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Println("no")
		os.Exit(1)
	}
	fmt.Println("yes")
}

func handleMkdir(ssfs *fs.FS, args []string) {
	if len(args) != 1 {
		logger.Error("mkdir: requires <path>")
		printUsage()
		os.Exit(1)
	}
	if err := ssfs.CreateDir(args[0]); err != nil {
		logger.Error("mkdir: failed", "path", args[0], "error", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func handleRoot(ssfs *fs.FS, args []string) {
	if len(args) > 1 {
		logger.Error("root: requires at most [newroot]")
		printUsage()
		os.Exit(1)
	}
	if len(args) == 1 {
		if err := ssfs.SetStorageRoot(args[0]); err != nil {
			logger.Error("root: set failed", "root", args[0], "error", err)
			os.Exit(1)
		}
	}
	fmt.Println(ssfs.StorageRoot())
}
