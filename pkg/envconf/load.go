// Package envconf fills configuration structs from the process environment.
//
// An optional dotenv file is read first; variables already present in the
// environment win over the file. Struct fields are described with
// kelseyhightower/envconfig tags:
//
//	type Config struct {
//		Port     uint16              `envconfig:"APP_PORT" default:"8080"`
//		Postgres config.PostgresConfig `envconfig:"PG"` // PG_DSN, PG_MAX_OPEN_CONNS, ...
//	}
package envconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DotEnvVar names the variable that overrides the dotenv path.
const DotEnvVar = "APP_DOTENV"

var ErrInvalidDestination = errors.New("destination must be a non-nil pointer to a struct")

// Load reads the dotenv file (if any) and processes dst.
func Load(dst any) error {
	err := loadDotEnv()
	if err != nil {
		return err
	}

	return Process(dst)
}

// Process fills dst from the current environment only.
func Process(dst any) error {
	if dst == nil {
		return ErrInvalidDestination
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return ErrInvalidDestination
	}

	err := envconfig.Process("", dst)
	if err != nil {
		return fmt.Errorf("process env: %w", err)
	}

	return nil
}

func loadDotEnv() error {
	path := ".env"

	explicit, ok := os.LookupEnv(DotEnvVar)
	if ok {
		path = explicit
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	// A missing default file is fine; a missing explicit one is not.
	if errors.Is(err, fs.ErrNotExist) && !ok {
		return nil
	}

	return fmt.Errorf("load dotenv %q: %w", path, err)
}
