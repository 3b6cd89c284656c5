// Package xconf 基于 koanf 加载 YAML/JSON 配置，并在文件变更时热重载。
//
// Store 按层合并配置：先写入 WithDefaults 给出的默认值，再用文件（或字节数据）覆盖。
// Reload 解析成功后原子替换快照，解析失败时保留旧快照，读取方永远看到完整的一份配置。
//
// Watch 监视配置文件所在目录（编辑器常以"写临时文件再 rename"的方式保存），
// 防抖后调用 Reload 并把结果交给回调，直到 ctx 取消。
//
//	store, err := xconf.Load("/etc/xteld/config.yaml", xconf.WithDefaults(defaults))
//	if err != nil {
//	    return err
//	}
//	var cfg Config
//	if err := store.Unmarshal("", &cfg); err != nil {
//	    return err
//	}
//	go store.Watch(ctx, func(s *xconf.Store, err error) { ... })
package xconf
