package localstore

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce 同一文件的连续事件合并为一次通知
const watchDebounce = 100 * time.Millisecond

// Watch 监听存储目录，命名空间文件被改动（包括其他进程写入）时回调 fn。
// ctx 取消后停止监听。
func (p *FileProvider) Watch(ctx context.Context, fn func(namespace string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听失败: %w", err)
	}
	if err := watcher.Add(p.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("监听目录 %s 失败: %w", p.dir, err)
	}
	go runWatcher(ctx, watcher, fn)
	return nil
}

func runWatcher(ctx context.Context, watcher *fsnotify.Watcher, fn func(namespace string)) {
	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
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
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			ns := namespaceOf(event.Name)
			if ns == "" {
				continue
			}
			mu.Lock()
			if t, ok := timers[ns]; ok {
				t.Stop()
			}
			timers[ns] = time.AfterFunc(watchDebounce, func() {
				mu.Lock()
				delete(timers, ns)
				mu.Unlock()
				fn(ns)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[localstore] 文件监听错误: %v", err)
		}
	}
}
