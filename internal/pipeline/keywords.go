package pipeline

// soft404Map lists known soft-404 phrases per language. Every page is
// scanned against all languages at once; the flattened set below is built
// once at package initialization, not per call.
var soft404Map = map[string][]string{
	"en":      {"not found", "error 404", "page unavailable", "does not exist", "back to home"},
	"zh-tw":   {"找不到頁面", "查無此人", "商品已下架", "404 錯誤", "頁面不存在"},
	"zh-cn":   {"页面未找到", "404 错误", "访问的页面不存在"},
	"de":      {"seite nicht gefunden", "fehler 404", "nicht verfügbar"},
	"ja":      {"ページが見つかりません", "存在しません"},
	"default": {"404", "not found", "error"},
}

var soft404Keywords = flattenKeywords(soft404Map)

func flattenKeywords(m map[string][]string) []string {
	seen := make(map[string]struct{})
	var flat []string
	for _, list := range m {
		for _, k := range list {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			flat = append(flat, k)
		}
	}
	return flat
}
