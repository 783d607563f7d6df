package entity

import "sort"

// NotListed は上流の抽出処理が「上場していない」ことを示すために使う番兵値です。
// 全ての処理で欠損として扱われます。
const NotListed = "Not Listed"

// NormalizeTickers は空文字列と番兵値を除外し、重複を取り除いてソートした銘柄リストを返します。
// 結果は要求された文字列そのものをキーにするため、前後の空白は取り除きません。
func NormalizeTickers(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t == "" || t == NotListed {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
