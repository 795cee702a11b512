package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del forecaster.
type Config struct {
	Training TrainingConfig `yaml:"training"`
	Paths    PathsConfig    `yaml:"paths"`
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// TrainingConfig controla el grid search.
type TrainingConfig struct {
	Horizon         int     `yaml:"horizon"`          // horizonte mínimo del grid
	SeriesLength    int     `yaml:"series_length"`    // longitud máxima de la serie (cota de la ventana)
	Workers         int     `yaml:"workers"`          // 0 = NumCPU
	ConfidenceLevel float64 `yaml:"confidence_level"` // bandas del forecast
	PercentChange   bool    `yaml:"percent_change"`   // entrenar sobre variaciones % diarias
	StartDate       string  `yaml:"start_date"`       // YYYY-MM-DD, vacío = todo el dataset
}

// PathsConfig controla dónde viven datasets, modelos y el log de errores.
type PathsConfig struct {
	DataDir   string `yaml:"data_dir"`
	ModelsDir string `yaml:"models_dir"`
	ErrorLog  string `yaml:"error_log"`
}

// APIConfig contiene los base URLs y credenciales de los providers.
type APIConfig struct {
	QuandlBase     string `yaml:"quandl_base"`
	QuandlAPIKey   string `yaml:"quandl_api_key"`
	QuandlDatabase string `yaml:"quandl_database"`
	CoinGeckoBase  string `yaml:"coingecko_base"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// StorageConfig controla dónde se persiste el histórico.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
// Un path vacío o inexistente arranca desde los defaults.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Validate comprueba los rangos de los parámetros de entrenamiento.
func (c *Config) Validate() error {
	t := c.Training
	switch {
	case t.Horizon < 1:
		return fmt.Errorf("training.horizon %d < 1: %w", t.Horizon, domain.ErrConfiguration)
	case t.Horizon >= t.SeriesLength:
		return fmt.Errorf("training.horizon %d >= training.series_length %d: %w",
			t.Horizon, t.SeriesLength, domain.ErrConfiguration)
	case t.ConfidenceLevel <= 0 || t.ConfidenceLevel >= 1:
		return fmt.Errorf("training.confidence_level %.3f outside (0,1): %w", t.ConfidenceLevel, domain.ErrConfiguration)
	case t.Workers < 0:
		return fmt.Errorf("training.workers %d < 0: %w", t.Workers, domain.ErrConfiguration)
	}
	if _, err := c.StartDate(); err != nil {
		return err
	}
	return nil
}

// StartDate devuelve training.start_date parseada (zero time si está vacía).
func (c *Config) StartDate() (time.Time, error) {
	if c.Training.StartDate == "" {
		return time.Time{}, nil
	}
	d, err := domain.ParseDate(c.Training.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("training.start_date %q: %v: %w", c.Training.StartDate, err, domain.ErrConfiguration)
	}
	return d, nil
}

// Timeout devuelve el timeout HTTP como time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("QUANDL_API_KEY"); v != "" {
		cfg.API.QuandlAPIKey = v
	}
	if v := os.Getenv("FORECASTER_DATA_DIR"); v != "" {
		cfg.Paths.DataDir = v
	}
	if v := os.Getenv("FORECASTER_MODELS_DIR"); v != "" {
		cfg.Paths.ModelsDir = v
	}
	if v := os.Getenv("FORECASTER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Training.Workers = n
		}
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Training.Horizon == 0 {
		cfg.Training.Horizon = 4
	}
	if cfg.Training.SeriesLength == 0 {
		cfg.Training.SeriesLength = 30
	}
	if cfg.Training.Workers == 0 {
		cfg.Training.Workers = runtime.NumCPU()
	}
	if cfg.Training.ConfidenceLevel == 0 {
		cfg.Training.ConfidenceLevel = 0.95
	}
	if cfg.Paths.DataDir == "" {
		cfg.Paths.DataDir = "data"
	}
	if cfg.Paths.ModelsDir == "" {
		cfg.Paths.ModelsDir = "models"
	}
	if cfg.Paths.ErrorLog == "" {
		cfg.Paths.ErrorLog = "error.log"
	}
	if cfg.API.QuandlBase == "" {
		cfg.API.QuandlBase = "https://data.nasdaq.com/api/v3"
	}
	if cfg.API.QuandlDatabase == "" {
		cfg.API.QuandlDatabase = "BITFINEX"
	}
	if cfg.API.CoinGeckoBase == "" {
		cfg.API.CoinGeckoBase = "https://api.coingecko.com/api/v3"
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 15
	}
	if cfg.API.MaxRetries <= 0 {
		cfg.API.MaxRetries = 3
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "forecaster.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
