package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Setenv("CSV2PARQUET_CONFIG", "")

	inputDir := t.TempDir()
	require.Nil(t, os.WriteFile(filepath.Join(inputDir, "a.csv"), []byte("id;score\n1;3.5\n2;\n"), 0o644))
	require.Nil(t, os.WriteFile(filepath.Join(inputDir, "b.csv"), []byte(""), 0o644))

	testCases := []struct {
		args         []string
		expectedCode int
		stdout       []string
	}{
		{
			args:         []string{"-d", ";", "--progress=false", filepath.Join(inputDir, "a.csv")},
			expectedCode: ExitOk,
			stdout:       []string{"Elapsed time"},
		},
		{
			args:         []string{"-d", ";", "-w", "2", "--progress=false", inputDir},
			expectedCode: ExitFailures,
			stdout:       []string{fmt.Sprintf("File: %s  Error: ", filepath.Join(inputDir, "b.csv")), "Elapsed time"},
		},
		{
			args:         []string{"-d", ""},
			expectedCode: ExitConfigError,
		},
		{
			args:         []string{"-w", "0"},
			expectedCode: ExitConfigError,
		},
		{
			args:         []string{"--help"},
			expectedCode: ExitOk,
		},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("case_%d", idx), func(t *testing.T) {
			stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
			code := run(context.Background(), tc.args, stdout, stderr)
			assert.Equal(t, tc.expectedCode, code, stderr.String())
			for _, expected := range tc.stdout {
				assert.True(t, strings.Contains(stdout.String(), expected), stdout.String())
			}
		})
	}

	_, err := os.Stat(filepath.Join(inputDir, "a.parquet"))
	assert.Nil(t, err)
}
