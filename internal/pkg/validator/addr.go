package validator

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// IsValidIP 验证 IP 地址格式（支持 IPv4 和 IPv6）
func IsValidIP(ip string) bool {
	if ip == "" {
		return false
	}
	return net.ParseIP(NormalizeIP(ip)) != nil
}

// NormalizeIP 规范化 IP 地址
// 移除 IPv6 的 zone identifier (例如 fe80::1%eth0 -> fe80::1)
func NormalizeIP(ip string) string {
	if idx := strings.IndexByte(ip, '%'); idx != -1 {
		return ip[:idx]
	}
	return ip
}

// IsValidHost 验证监听地址: IP 或主机名
func IsValidHost(host string) bool {
	if IsValidIP(host) {
		return true
	}
	if host == "" || len(host) > 253 {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-') {
				return false
			}
		}
	}
	return true
}

// ValidateBaseURL 检查服务地址: 必须是带主机名的 http(s) URL
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("invalid url %q: missing host", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("invalid url %q: query and fragment are not allowed", raw)
	}
	return nil
}
