// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/traylinx/autoheal/internal/healer"
)

// StatusSource is the watcher state exposed over HTTP.
type StatusSource interface {
	Target() string
	Busy() bool
	LastReport() *healer.Report
}

// Status is the /status response.
type Status struct {
	Target  *FileStatus    `json:"target"`
	Running bool           `json:"running"`
	LastRun *healer.Report `json:"last_run,omitempty"`
}

// FileStatus describes the target file on disk.
type FileStatus struct {
	Path    string    `json:"path"`
	Exists  bool      `json:"exists"`
	Size    int64     `json:"size"`
	Mode    string    `json:"mode,omitempty"`
	ModTime time.Time `json:"mod_time,omitempty"`
}

func getFileStatus(path string) *FileStatus {
	status := &FileStatus{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		return status
	}

	status.Exists = true
	status.Size = info.Size()
	status.Mode = info.Mode().String()
	status.ModTime = info.ModTime()
	return status
}

// StatusHandler returns the handler for /status.
func StatusHandler(src StatusSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if src == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "watcher not running"})
			return
		}
		c.JSON(http.StatusOK, &Status{
			Target:  getFileStatus(src.Target()),
			Running: src.Busy(),
			LastRun: src.LastReport(),
		})
	}
}

// HealthHandler returns the handler for /healthz.
func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
