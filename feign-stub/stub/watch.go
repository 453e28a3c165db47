// Copyright (c) 2026 Palantir Technologies. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stub

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	werror "github.com/palantir/witchcraft-go-error"
	"github.com/palantir/witchcraft-go-logging/wlog/svclog/svc1log"
)

// Watch reloads the contracts of dir into store whenever a contract file in it changes, until ctx is done. A reload
// that fails to load or validate is logged and the previous contract set stays in place. Directories created after
// Watch starts are not watched.
func Watch(ctx context.Context, dir string, store *Store) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return werror.WrapWithContextParams(ctx, err, "failed to create contract watcher")
	}
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	}); err != nil {
		_ = watcher.Close()
		return werror.WrapWithContextParams(ctx, err, "failed to watch contract directory", werror.SafeParam("dir", dir))
	}

	go func() {
		defer func() {
			_ = watcher.Close()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				changed := event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
				if !changed || !IsContractFile(event.Name) {
					continue
				}
				reload(ctx, dir, store)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				svc1log.FromContext(ctx).Warn("Contract watcher error", svc1log.Stacktrace(err))
			}
		}
	}()
	return nil
}

func reload(ctx context.Context, dir string, store *Store) {
	contracts, err := LoadDir(dir)
	if err == nil {
		err = store.Replace(contracts)
	}
	if err != nil {
		svc1log.FromContext(ctx).Error("Failed to reload contracts",
			svc1log.SafeParam("dir", dir),
			svc1log.Stacktrace(err))
		return
	}
	svc1log.FromContext(ctx).Info("Reloaded contracts",
		svc1log.SafeParam("dir", dir),
		svc1log.SafeParam("count", len(contracts)))
}
