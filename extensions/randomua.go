package extensions

import (
	"fmt"
	"math/rand"
)

var osStrings = []string{
	"Macintosh; Intel Mac OS X 10_15_7",
	"Windows NT 10.0; Win64; x64",
	"X11; Linux x86_64",
	"X11; Ubuntu; Linux x86_64",
}

// GenerateRandomUA 生成随机的 Chrome / Firefox User-Agent
func GenerateRandomUA() string {
	os := osStrings[rand.Intn(len(osStrings))]
	if rand.Intn(2) == 0 {
		return genChromeUA(os)
	}
	return genFirefoxUA(os)
}

func genChromeUA(os string) string {
	major := 100 + rand.Intn(30)
	build := 4000 + rand.Intn(2000)
	patch := rand.Intn(200)
	return fmt.Sprintf("Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.%d.%d Safari/537.36", os, major, build, patch)
}

func genFirefoxUA(os string) string {
	version := 100 + rand.Intn(30)
	return fmt.Sprintf("Mozilla/5.0 (%s; rv:%d.0) Gecko/20100101 Firefox/%d.0", os, version, version)
}
