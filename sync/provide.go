package sync

import (
	"github.com/KOMKZ/go-dashsync/api"
	"github.com/KOMKZ/go-dashsync/cache"
	"github.com/KOMKZ/go-dashsync/mutation"
	"github.com/KOMKZ/go-dashsync/poller"
	"github.com/samber/do/v2"
)

// RegisterProviders 把同步层各部件注册到 do 容器
// 嵌入方通过 do.MustInvoke[*cache.Store](injector) 等方式按类型取用
// 须在 Syncer 初始化完成后调用
func RegisterProviders(injector do.Injector, s *Syncer) {
	do.ProvideValue(injector, s)
	do.Provide(injector, ProvideStore(s))
	do.Provide(injector, ProvideAPIClient(s))
	do.Provide(injector, ProvideMutator(s))
	do.Provide(injector, ProvidePoller(s))
}

// ProvideStore 创建 *cache.Store 的 Provider
func ProvideStore(s *Syncer) func(do.Injector) (*cache.Store, error) {
	return func(do.Injector) (*cache.Store, error) {
		if s.store == nil {
			return nil, ErrPartNotReady.WithData("part", "store")
		}
		return s.store, nil
	}
}

// ProvideAPIClient 创建 *api.Client 的 Provider
func ProvideAPIClient(s *Syncer) func(do.Injector) (*api.Client, error) {
	return func(do.Injector) (*api.Client, error) {
		if s.api == nil {
			return nil, ErrPartNotReady.WithData("part", "api")
		}
		return s.api, nil
	}
}

// ProvideMutator 创建 *mutation.Mutator 的 Provider
func ProvideMutator(s *Syncer) func(do.Injector) (*mutation.Mutator, error) {
	return func(do.Injector) (*mutation.Mutator, error) {
		if s.mutator == nil {
			return nil, ErrPartNotReady.WithData("part", "mutator")
		}
		return s.mutator, nil
	}
}

// ProvidePoller 创建 *poller.Poller 的 Provider
func ProvidePoller(s *Syncer) func(do.Injector) (*poller.Poller, error) {
	return func(do.Injector) (*poller.Poller, error) {
		if s.poller == nil {
			return nil, ErrPartNotReady.WithData("part", "poller")
		}
		return s.poller, nil
	}
}
