package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ TokenService       = TokenServiceFunc(nil)
	_ EnvironmentCatalog = StaticEnvironmentCatalog(nil)
	_ ConfigProvider     = (*CfgxConfigProvider)(nil)
	_ RawConfigLoader    = StaticRawConfigLoader{}
	_ OptionsResolver    = GoOptionsResolver{}

	_ ConnectionOpener[struct{}] = ConnectionOpenerFunc[struct{}](nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
