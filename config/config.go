// Package config carga la configuración de la aplicación y de las
// estrategias. Son dos documentos separados: el YAML de aplicación
// (endpoints, storage, logging) y el YAML de estrategia que describe
// el backtest en sí.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración de la aplicación. No incluye la estrategia,
// que viaja en su propio fichero (ver LoadStrategy).
type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// BacktestConfig controla el descubrimiento y la descarga de datos.
type BacktestConfig struct {
	MaxMarkets   int `yaml:"max_markets"`   // tope de mercados candidatos
	FetchWorkers int `yaml:"fetch_workers"` // descargas de velas en paralelo
}

// APIConfig son los endpoints de Polymarket.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// StorageConfig es la persistencia de ejecuciones.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta del fichero sqlite
}

// LogConfig controla el logger global.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text o json
}

// Load lee el YAML de aplicación y aplica variables de entorno y defaults.
// Con path vacío arranca de la configuración por defecto, el fichero es
// opcional.
func Load(path string) (*Config, error) {
	// .env es opcional, ignoramos el error si no existe
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse %q: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()
	return cfg, nil
}

// applyEnvOverrides pisa la configuración con variables de entorno.
// Solo exponemos las que tiene sentido cambiar por despliegue.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("POLYBACK_DB"); v != "" {
		c.Storage.DSN = v
	}
}

func (c *Config) setDefaults() {
	if c.Backtest.MaxMarkets == 0 {
		c.Backtest.MaxMarkets = 500
	}
	if c.Backtest.FetchWorkers == 0 {
		c.Backtest.FetchWorkers = 8
	}
	if c.API.CLOBBase == "" {
		c.API.CLOBBase = "https://clob.polymarket.com"
	}
	if c.API.GammaBase == "" {
		c.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if c.Storage.DSN == "" {
		c.Storage.DSN = "polyback.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}
