// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package geoip resolves client IPs to ISO country codes using a MaxMind
// GeoLite2-Country database.
package geoip

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"

	"github.com/olegiv/magazine-api/internal/util"
)

// Local is reported for private and loopback addresses.
const Local = "LOCAL"

// Lookup resolves countries. A Lookup without a database returns "" for
// public addresses, so analytics keep working without GeoIP.
type Lookup struct {
	mu        sync.RWMutex
	db        *maxminddb.Reader
	dbPath    string
	dbModTime time.Time
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Open loads the database at path. An empty path returns a disabled Lookup.
// A failing load also returns a usable disabled Lookup next to the error,
// and Reload picks the file up once it appears.
func Open(path string) (*Lookup, error) {
	l := &Lookup{dbPath: path}
	if path == "" {
		return l, nil
	}
	if err := l.load(); err != nil {
		return l, err
	}
	return l, nil
}

// load opens or reopens the database when the file changed.
// Caller must hold the write lock or own l exclusively.
func (l *Lookup) load() error {
	info, err := os.Stat(l.dbPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("GeoIP database not found: %s", l.dbPath)
		}
		return fmt.Errorf("GeoIP database stat error: %w", err)
	}
	if l.db != nil && info.ModTime().Equal(l.dbModTime) {
		return nil
	}

	db, err := maxminddb.Open(l.dbPath)
	if err != nil {
		return fmt.Errorf("opening GeoIP database: %w", err)
	}
	if l.db != nil {
		_ = l.db.Close()
	}
	l.db = db
	l.dbModTime = info.ModTime()
	return nil
}

// Reload reopens the database if the file was replaced since the last load.
func (l *Lookup) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dbPath == "" {
		return nil
	}
	return l.load()
}

// Country returns the ISO code for ip, Local for private ranges, and ""
// when it cannot be determined.
func (l *Lookup) Country(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	if util.IsPrivateIP(parsed) {
		return Local
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.db == nil {
		return ""
	}

	var rec countryRecord
	if err := l.db.Lookup(parsed, &rec); err != nil {
		return ""
	}
	return rec.Country.ISOCode
}

// Enabled reports whether a database is loaded.
func (l *Lookup) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.db != nil
}

// Close closes the database.
func (l *Lookup) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}
