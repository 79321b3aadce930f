/*
 * MIT License
 *
 * Copyright (c) 2023 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package gorm is the index catalogue's persistence layer: it backs
// index.Store with gorm.io/gorm against either an embedded sqlite file
// (the default, single-host deployment) or a networked postgres
// server, migrating its own schema and wrapping each multi-row catalogue
// operation (entity creation, entry insertion, aggregate refresh, entity
// deletion) in its own transaction.
package gorm

import (
	"fmt"
	"time"

	libval "github.com/go-playground/validator/v10"
	liberr "github.com/sabouaram/barsys/errors"
	gormdb "gorm.io/gorm"
)

// Config configures a Store's underlying connection.
type Config struct {
	// Driver selects the dialector; DriverSQLite (the default, pass the
	// zero value) or DriverPostgreSQL.
	Driver Driver `mapstructure:"driver" json:"driver" yaml:"driver" toml:"driver"`

	// DSN is the driver-specific connection string: a file path (or
	// ":memory:") for sqlite, a "host=... user=... dbname=..." string
	// for postgres.
	DSN string `mapstructure:"dsn" json:"dsn" yaml:"dsn" toml:"dsn" validate:"required"`

	// EnableConnectionPool enables pool tuning below; meaningless for an
	// embedded sqlite file, honoured for postgres.
	EnableConnectionPool bool          `mapstructure:"enable-connection-pool" json:"enable-connection-pool" yaml:"enable-connection-pool" toml:"enable-connection-pool"`
	PoolMaxIdleConns     int           `mapstructure:"pool-max-idle-conns" json:"pool-max-idle-conns" yaml:"pool-max-idle-conns" toml:"pool-max-idle-conns"`
	PoolMaxOpenConns     int           `mapstructure:"pool-max-open-conns" json:"pool-max-open-conns" yaml:"pool-max-open-conns" toml:"pool-max-open-conns"`
	PoolConnMaxLifetime  time.Duration `mapstructure:"pool-conn-max-lifetime" json:"pool-conn-max-lifetime" yaml:"pool-conn-max-lifetime" toml:"pool-conn-max-lifetime"`

	// SkipDefaultTransaction disables gorm's implicit single-statement
	// transaction; the catalogue wraps its own multi-row inserts in
	// explicit transactions (see store.go's calls to db.Transaction), so leaving
	// gorm's default enabled only doubles that cost.
	SkipDefaultTransaction bool `mapstructure:"skip-default-transaction" json:"skip-default-transaction" yaml:"skip-default-transaction" toml:"skip-default-transaction"`
}

// Validate checks the configuration's required fields.
func (c *Config) Validate() liberr.Error {
	var e = ErrorValidatorError.Error(nil)

	if err := libval.New().Struct(c); err != nil {
		if er, ok := err.(*libval.InvalidValidationError); ok {
			e.Add(er)
		}

		for _, er := range err.(libval.ValidationErrors) {
			//nolint #goerr113
			e.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", er.Namespace(), er.ActualTag()))
		}
	}

	if !e.HasParent() {
		e = nil
	}

	return e
}

func (c *Config) gormConfig() *gormdb.Config {
	return &gormdb.Config{
		SkipDefaultTransaction: c.SkipDefaultTransaction,
	}
}

// open dials the configured dialector and applies pool settings.
func (c *Config) open() (*gormdb.DB, liberr.Error) {
	db, err := gormdb.Open(c.Driver.Dialector(c.DSN), c.gormConfig())
	if err != nil {
		return nil, ErrorDatabaseOpen.Error(err)
	}

	if c.EnableConnectionPool {
		sqlDB, serr := db.DB()
		if serr != nil {
			return nil, ErrorDatabaseOpenPool.Error(serr)
		}
		if c.PoolMaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(c.PoolMaxIdleConns)
		}
		if c.PoolMaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(c.PoolMaxOpenConns)
		}
		if c.PoolConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(c.PoolConnMaxLifetime)
		}
	}

	return db, nil
}
