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

package gorm

import (
	"strings"

	drvpsq "gorm.io/driver/postgres"
	drvsql "gorm.io/driver/sqlite"
	gormdb "gorm.io/gorm"
)

const (
	DriverNone       Driver = ""
	DriverSQLite     Driver = "sqlite"
	DriverPostgreSQL Driver = "psql"
)

// Driver selects the catalogue's backing SQL dialect. Unlike
// nabbar-golib's general-purpose database/gorm, the catalogue only
// ever needs an embedded single-host store or a networked multi-host
// one, so only the two dialectors actually imported by this module are
// exposed here.
type Driver string

func DriverFromString(drv string) Driver {
	switch strings.ToLower(drv) {
	case strings.ToLower(string(DriverPostgreSQL)), "postgres", "postgresql":
		return DriverPostgreSQL
	case strings.ToLower(string(DriverSQLite)):
		return DriverSQLite
	default:
		return DriverNone
	}
}

func (d Driver) String() string {
	return string(d)
}

// Dialector returns the gorm dialector for d, defaulting to sqlite so a
// zero-value Config is immediately usable for an embedded deployment.
func (d Driver) Dialector(dsn string) gormdb.Dialector {
	switch d {
	case DriverPostgreSQL:
		return drvpsq.Open(dsn)
	default:
		return drvsql.Open(dsn)
	}
}
