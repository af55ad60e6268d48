package portal

import "net/http"

// 与浏览器抓包一致的请求头。OA 服务端校验 Referer 与 X-Requested-With，
// aaaaa 是门户自定义的令牌头，未登录时取字面量 "null"。

const (
	mobileUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 18_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.5 Mobile/15E148 Safari/604.1 Edg/144.0.0.0"
	androidUA = "Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Mobile Safari/537.36 Edg/144.0.0.0"

	acceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8,en-GB;q=0.7,en-US;q=0.6"
)

func (c *Client) setTopicHeaders(req *http.Request) {
	h := req.Header
	h.Set("Accept", "application/json")
	h.Set("Accept-Language", acceptLanguage)
	h.Set("Connection", "keep-alive")
	h.Set("Referer", c.baseURL+"/meip/view/bmtopic/bmtopic.html")
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("User-Agent", mobileUA)
	h.Set("X-Requested-With", "XMLHttpRequest")
}

func (c *Client) setSaveAnswerHeaders(req *http.Request) {
	c.setTopicHeaders(req)
	h := req.Header
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	h.Set("Origin", c.baseURL)
}

func (c *Client) setValidLoginHeaders(req *http.Request) {
	h := req.Header
	h.Set("Accept", "application/json")
	h.Set("Accept-Language", acceptLanguage)
	h.Set("Connection", "keep-alive")
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	h.Set("Origin", c.baseURL)
	h.Set("Referer", c.baseURL+"/meip/view/login/login.html")
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("User-Agent", mobileUA)
	h.Set("X-Requested-With", "XMLHttpRequest")
	h.Set("aaaaa", "null")
}

func (c *Client) setVerifyCodeHeaders(req *http.Request) {
	h := req.Header
	h.Set("Accept", "application/json")
	h.Set("Accept-Language", acceptLanguage)
	h.Set("Connection", "keep-alive")
	h.Set("Referer", c.baseURL+"/meip/view/login/login.html?userId=null")
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("User-Agent", androidUA)
	h.Set("X-Requested-With", "XMLHttpRequest")
	h.Set("aaaaa", "null")
	h.Set("sec-ch-ua", `"Not(A:Brand";v="8", "Chromium";v="144", "Microsoft Edge";v="144"`)
	h.Set("sec-ch-ua-mobile", "?1")
	h.Set("sec-ch-ua-platform", `"Android"`)
}
