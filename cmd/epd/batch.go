package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch INPUT_DIR OUTPUT_DIR",
	Short: "Dither every image of a directory",
	Args:  cobra.ExactArgs(2),
	RunE:  runBatch,
}

var batchFlags struct {
	jobs    int
	preview bool
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tif":  true,
	".tiff": true,
}

func init() {
	addDitherFlags(batchCmd)
	batchCmd.Flags().IntVarP(&batchFlags.jobs, "jobs", "j", 0, "Number of images processed concurrently")
	batchCmd.Flags().BoolVarP(&batchFlags.preview, "preview", "p", false, "Write the colors the panel shows")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(_ *cobra.Command, args []string) error {
	applyDitherFlags()
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	src, dst := args[0], args[1]
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(dst, 0o755); err != nil {
		return err
	}

	jobs := batchJobs(batchFlags.jobs, cfg.Main.Jobs)

	var (
		pool  = workerpool.New(jobs)
		mu    sync.Mutex
		errs  []error
		count int
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		count++

		input := filepath.Join(src, name)
		output := filepath.Join(dst, strings.TrimSuffix(name, filepath.Ext(name))+".png")
		pool.Submit(func() {
			now := time.Now()
			err := processJob(p, input, output)
			if err != nil {
				log.WithError(err).WithField("input", input).Error("cannot dither image")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			log.WithFields(log.Fields{
				"input":  input,
				"output": output,
				"took":   time.Since(now),
			}).Info("image dithered")
		})
	}
	pool.StopWait()

	log.WithFields(log.Fields{
		"images": count,
		"failed": len(errs),
		"jobs":   jobs,
	}).Info("batch done")
	return errors.Join(errs...)
}

// batchJobs returns the number of workers: the flag, else the configuration, at least one.
func batchJobs(flag, configured int) int {
	if flag > 0 {
		return flag
	}
	return max(configured, 1)
}

// processJob runs one batch image, a panic fails the image instead of the batch.
func processJob(p *pipeline, input, output string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v", input, r)
		}
	}()
	return p.processFile(input, output, batchFlags.preview)
}
