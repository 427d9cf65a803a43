package sseclient

import "encoding/base64"

// BasicAuth returns an Authorization header value for HTTP basic
// authentication with the given credentials. Result can be passed to the
// client via Config.Headers:
//
//	cfg.Headers = map[string]string{
//		"Authorization": sseclient.BasicAuth("user", "secret"),
//	}
func BasicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}
