// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// reloadDebounce coalesces the burst of events editors produce on save.
const reloadDebounce = 100 * time.Millisecond

// Watcher reloads the config file when it changes and hands the new
// configuration to a callback. A file that fails to load is logged and
// ignored; the previous configuration stays in effect.
type Watcher struct {
	path     string
	onChange func(*Config)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timer   *time.Timer
	stop    chan struct{}
	done    chan struct{}
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, onChange func(*Config)) *Watcher {
	return &Watcher{path: path, onChange: onChange}
}

// Start begins watching. The parent directory is watched so that editors
// which replace the file by rename are picked up.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}
	w.watcher = fw
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.loop(fw, w.stop, w.done)
	return nil
}

func (w *Watcher) loop(fw *fsnotify.Watcher, stop, done chan struct{}) {
	defer close(done)
	target := filepath.Clean(w.path)
	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			log.Errorf("config watcher error: %v", err)
		case <-stop:
			return
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		log.Errorf("failed to reload config %s: %v", w.path, err)
		return
	}
	log.Infof("config file changed (%s), reloaded", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Stop ends watching and cancels a pending reload.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fw, stop, done := w.watcher, w.stop, w.done
	w.watcher = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	if fw == nil {
		return
	}
	close(stop)
	<-done
	fw.Close()
}
