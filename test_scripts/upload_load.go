package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

// generateRandomName generates a random 6-letter name
func generateRandomName() string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	name := make([]byte, 6)
	for i := range name {
		name[i] = letters[rand.Intn(len(letters))]
	}
	// Capitalize first letter
	name[0] = name[0] - 32
	return string(name)
}

// buildWorkbook returns an xlsx with a header and rows random people
func buildWorkbook(rows int) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header := []interface{}{"name", "age", "email"}
	if err := f.SetSheetRow("Sheet1", "A1", &header); err != nil {
		return nil, err
	}
	for i := 0; i < rows; i++ {
		name := generateRandomName()
		row := []interface{}{name, rand.Intn(82) + 18, strings.ToLower(name) + "@example.com"}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// uploadWorkbook posts data to /upload and returns the number of rows stored
func uploadWorkbook(ctx context.Context, baseURL string, data []byte) (int, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "load.xlsx")
	if err != nil {
		return 0, err
	}
	if _, err := part.Write(data); err != nil {
		return 0, err
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/upload", &body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result struct {
		Data []map[string]interface{} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return len(result.Data), nil
}

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run test_scripts/upload_load.go <uploads> <rows_per_upload> [server_url] [concurrency]")
		fmt.Println("Example: go run test_scripts/upload_load.go 50 200")
		fmt.Println("Example: go run test_scripts/upload_load.go 50 200 http://localhost:3000 8")
		os.Exit(1)
	}

	uploads, err := strconv.Atoi(os.Args[1])
	if err != nil || uploads <= 0 {
		fmt.Printf("Error: Invalid number of uploads '%s'\n", os.Args[1])
		os.Exit(1)
	}
	rowsPerUpload, err := strconv.Atoi(os.Args[2])
	if err != nil || rowsPerUpload <= 0 {
		fmt.Printf("Error: Invalid rows per upload '%s'\n", os.Args[2])
		os.Exit(1)
	}

	serverURL := "http://localhost:3000"
	if len(os.Args) >= 4 {
		serverURL = os.Args[3]
	}
	concurrency := 4
	if len(os.Args) >= 5 {
		if concurrency, err = strconv.Atoi(os.Args[4]); err != nil || concurrency <= 0 {
			fmt.Printf("Error: Invalid concurrency '%s'\n", os.Args[4])
			os.Exit(1)
		}
	}

	fmt.Printf("Starting load test: %d uploads of %d rows to %s (%d concurrent)\n",
		uploads, rowsPerUpload, serverURL, concurrency)

	startTime := time.Now()
	var rowsStored, errorCount atomic.Int64

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(concurrency)
	for i := 0; i < uploads; i++ {
		g.Go(func() error {
			data, err := buildWorkbook(rowsPerUpload)
			if err != nil {
				return err
			}
			n, err := uploadWorkbook(ctx, serverURL, data)
			if err != nil {
				errorCount.Add(1)
				fmt.Printf("Error in upload %d: %v\n", i+1, err)
				return nil
			}
			rowsStored.Add(int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	uploadTime := time.Since(startTime)

	searchStart := time.Now()
	resp, err := http.Get(serverURL + "/search/example")
	if err != nil {
		fmt.Printf("Error: search failed: %v\n", err)
		os.Exit(1)
	}
	var found []map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&found)
	resp.Body.Close()
	if err != nil {
		fmt.Printf("Error: decoding search response: %v\n", err)
		os.Exit(1)
	}
	searchTime := time.Since(searchStart)

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("LOAD TEST COMPLETE")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Uploads attempted:     %d\n", uploads)
	fmt.Printf("Failed uploads:        %d\n", errorCount.Load())
	fmt.Printf("Rows stored:           %d\n", rowsStored.Load())
	fmt.Printf("Upload time:           %v\n", uploadTime)
	fmt.Printf("Rows per second:       %.2f\n", float64(rowsStored.Load())/uploadTime.Seconds())
	fmt.Printf("Search matches:        %d\n", len(found))
	fmt.Printf("Search time:           %v\n", searchTime)

	if errorCount.Load() > 0 {
		fmt.Printf("\nWarning: %d uploads failed\n", errorCount.Load())
		os.Exit(1)
	}
}
