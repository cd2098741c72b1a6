/*
Copyright 2025 Heavyrent Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"database/sql"
	"sync"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/heavyrent/rentahold/cache"
	"github.com/heavyrent/rentahold/config"
)

// Package-level singleton so every caller shares one connection pool.
var instance *Datasource
var once sync.Once

// Datasource wraps the shared Postgres connection. All repository methods
// hang off this type. Cache may be nil; read paths that use it must treat a
// missing cache as a miss.
type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the datasource and
// initializes it on first use.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		ca, errCache := cache.NewCache()
		if errCache != nil {
			logrus.WithError(errCache).Warn("cache unavailable, queries go straight to postgres")
		}
		instance = &Datasource{Conn: con, Cache: ca}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// ConnectDB opens and pings a Postgres connection. Schema setup is handled
// by migrations, not here.
func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		logrus.WithError(err).Error("database connection failed")
		return nil, err
	}
	return db, nil
}
