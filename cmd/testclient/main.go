package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type clientFlags struct {
	Addr    string
	Target  string
	Async   bool
	Timeout time.Duration
	Verbose bool
}

var logger = logrus.New()

func main() {
	flags := &clientFlags{}

	rootCmd := &cobra.Command{
		Use:   "testclient",
		Short: "Exercise a running Vaani server",
		Long: `testclient uploads text files to a Vaani server and prints the result.

Examples:
  testclient upload notes.txt --target hindi
  testclient upload notes.txt --target tamil --async
  testclient languages`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetLevel(logrus.InfoLevel)
			if flags.Verbose {
				logger.SetLevel(logrus.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.Addr, "addr", "http://localhost:5000", "Server base URL")
	rootCmd.PersistentFlags().DurationVar(&flags.Timeout, "timeout", 2*time.Minute, "Overall request timeout")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")

	uploadCmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a text file for translation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd.Context(), flags, args[0])
		},
	}
	uploadCmd.Flags().StringVarP(&flags.Target, "target", "t", "hindi", "Target language name")
	uploadCmd.Flags().BoolVar(&flags.Async, "async", false, "Submit as a background job and poll until it finishes")

	languagesCmd := &cobra.Command{
		Use:   "languages",
		Short: "List supported target languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLanguages(cmd.Context(), flags)
		},
	}

	rootCmd.AddCommand(uploadCmd, languagesCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

func runUpload(ctx context.Context, flags *clientFlags, path string) error {
	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}

	endpoint := "/api/upload"
	if flags.Async {
		endpoint = "/api/jobs"
	}

	logger.WithFields(logrus.Fields{
		"server":          flags.Addr,
		"file":            path,
		"bytes":           len(data),
		"target_language": flags.Target,
		"async":           flags.Async,
	}).Info("Uploading file...")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := mw.WriteField("targetLanguage", flags.Target); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(flags.Addr, "/")+endpoint, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	startTime := time.Now()
	respBody, err := do(req)
	if err != nil {
		return err
	}

	if !flags.Async {
		logger.WithFields(logrus.Fields{
			"duration_ms": time.Since(startTime).Milliseconds(),
		}).Info("Translation completed")
		return printJSON(respBody)
	}

	var created struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil {
		return fmt.Errorf("failed to decode job response: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"job_id": created.JobID,
	}).Info("Job submitted, polling for completion")

	return pollJob(ctx, flags, created.JobID)
}

func pollJob(ctx context.Context, flags *clientFlags, jobID string) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	url := strings.TrimRight(flags.Addr, "/") + "/api/jobs/" + jobID

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("job %s did not finish: %w", jobID, ctx.Err())
		case <-ticker.C:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		respBody, err := do(req)
		if err != nil {
			return err
		}

		var status struct {
			Status          string `json:"status"`
			ProgressPercent int32  `json:"progress_percent"`
			Error           string `json:"error"`
		}
		if err := json.Unmarshal(respBody, &status); err != nil {
			return fmt.Errorf("failed to decode job status: %w", err)
		}

		logger.WithFields(logrus.Fields{
			"job_id":   jobID,
			"status":   status.Status,
			"progress": status.ProgressPercent,
		}).Debug("Job status")

		switch status.Status {
		case "completed":
			return printJSON(respBody)
		case "failed":
			return fmt.Errorf("job %s failed: %s", jobID, status.Error)
		}
	}
}

func runLanguages(ctx context.Context, flags *clientFlags) error {
	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(flags.Addr, "/")+"/api/languages", nil)
	if err != nil {
		return err
	}

	respBody, err := do(req)
	if err != nil {
		return err
	}
	return printJSON(respBody)
}

// do sends req and returns the body of a 2xx response.
func do(req *http.Request) ([]byte, error) {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func printJSON(body []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		return fmt.Errorf("invalid JSON response: %w", err)
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(os.Stdout)
	return err
}
