package httpcodec

// suffixType maps a file extension (including the leading dot) to a
// Content-type value. Copied in meaning from
// HttpResponse::SUFFIX_TYPE in code/http/httpresponse.cpp; unknown
// extensions fall back to text/plain.
var suffixType = map[string]string{
	".html":  "text/html",
	".xml":   "text/xml",
	".xhtml": "application/xhtml+xml",
	".txt":   "text/plain",
	".rtf":   "application/rtf",
	".pdf":   "application/pdf",
	".word":  "application/nsword",
	".png":   "image/png",
	".gif":   "image/gif",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".au":    "audio/basic",
	".mpeg":  "video/mpeg",
	".mpg":   "video/mpeg",
	".avi":   "video/x-msvideo",
	".gz":    "application/x-gzip",
	".tar":   "application/x-tar",
	".css":   "text/css",
	".js":    "text/javascript",
}

// codeStatus maps a status code to its reason phrase. Unknown codes
// degrade to 400, per HttpResponse::AddStateLine_.
var codeStatus = map[int]string{
	200: "OK",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
}

// codePath maps a status code to the static error page served in its
// place, per HttpResponse::CODE_PATH / ErrorHtml_.
var codePath = map[int]string{
	400: "/400.html",
	403: "/403.html",
	404: "/404.html",
}

func mimeType(path string) string {
	idx := -1
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			idx = i
			break
		}
		if path[i] == '/' {
			break
		}
	}
	if idx < 0 {
		return "text/plain"
	}
	if t, ok := suffixType[path[idx:]]; ok {
		return t
	}
	return "text/plain"
}
