// Package logx provides structured logging on top of zerolog with a
// hot-swappable sink set (console, JSON file, optional Telegram ops chat).
//
// Services hold a Logger value; the Service behind it can be re-applied
// with new config at runtime without invalidating existing loggers.
package logx
