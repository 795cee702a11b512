package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alejandrodnm/forecaster/config"
	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig escribe un config.yaml que apunta todo a un directorio temporal.
func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
paths:
  data_dir: %s
  models_dir: %s
  error_log: %s
storage:
  dsn: ":memory:"
log:
  level: error
`, filepath.Join(dir, "data"), filepath.Join(dir, "models"), filepath.Join(dir, "error.log"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestHistory_EmptyDatabase(t *testing.T) {
	rootCmd.SetArgs([]string{"history", "--config", testConfig(t), "--table=false"})
	require.NoError(t, rootCmd.Execute())
}

func TestTrain_MissingDataset(t *testing.T) {
	rootCmd.SetArgs([]string{"train", "btcusd", "--config", testConfig(t), "--to-latest-data=false"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataNotFound)
}

func TestLatestDataIsDefault(t *testing.T) {
	for _, c := range []string{"train", "predict"} {
		cmd, _, err := rootCmd.Find([]string{c})
		require.NoError(t, err)
		flag := cmd.Flags().Lookup("to-latest-data")
		require.NotNil(t, flag, c)
		assert.Equal(t, "true", flag.DefValue, c)
	}
}

func TestTrain_BadStartDate(t *testing.T) {
	rootCmd.SetArgs([]string{"train", "btcusd", "--config", testConfig(t), "--start-date", "soon"})
	err := rootCmd.Execute()
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestPredict_NoModel(t *testing.T) {
	rootCmd.SetArgs([]string{"predict", "btcusd", "--config", testConfig(t), "--to-latest-data=false"})
	err := rootCmd.Execute()
	assert.ErrorIs(t, err, domain.ErrDataNotFound)
}

func TestLogError_WritesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.log")
	cfg = &config.Config{Paths: config.PathsConfig{ErrorLog: path}}
	t.Cleanup(func() { cfg = nil })

	err := fmt.Errorf("trainer.Run: %w", fmt.Errorf("search: %w", domain.ErrTrainingFailed))
	logError(err)

	b, rerr := os.ReadFile(path)
	require.NoError(t, rerr)
	out := string(b)
	assert.Contains(t, out, "trainer.Run: search: training failed")
	assert.Contains(t, out, "caused by *errors.errorString: "+domain.ErrTrainingFailed.Error())
	assert.True(t, errors.Is(err, domain.ErrTrainingFailed))
}
