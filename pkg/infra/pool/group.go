package pool

import (
	"context"
	"sync"
)

// Map 在池中并发执行 fn(ctx, i)，i ∈ [0, n)，等待全部完成。
// 第一个错误会取消其余任务并被返回；结果由调用方按下标写入，顺序天然保持。
// p 为 nil 时顺序执行。
func Map(ctx context.Context, p *Pool, n int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}
	if p == nil {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		i := i
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := fn(ctx, i); err != nil {
				fail(err)
			}
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
