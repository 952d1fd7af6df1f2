package utils

import "fmt"

// TypeName 런타임 타입의 이름을 문자열로 반환 (nil이면 "<nil>")
func TypeName(v any) string {
	return fmt.Sprintf("%T", v)
}
