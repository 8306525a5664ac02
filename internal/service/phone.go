package service

import (
	"regexp"
	"strings"
)

var phoneSeparators = strings.NewReplacer(" ", "", ".", "", "-", "", "(", "", ")", "")

// vnPhonePattern 越南手机号：0 开头 10 位，或 +84 / 84 开头
var vnPhonePattern = regexp.MustCompile(`^(0|\+?84)[0-9]{9}$`)

// NormalizePhone 去除首尾空白及空格、点、横线、括号
// 学员按规范化后的手机号精确匹配
func NormalizePhone(phone string) string {
	return phoneSeparators.Replace(strings.TrimSpace(phone))
}

// ValidPhone 规范化后是否为合法手机号
func ValidPhone(phone string) bool {
	return vnPhonePattern.MatchString(NormalizePhone(phone))
}
