package api

import "strings"

const usageText = `pastabin - minimal pastebin. Manual post required. CLI recommended.

    USAGE

      POST /

        accepts raw data in the body of the request and responds with JSON
        holding the URL of the paste and the password needed to delete it

      GET /<id>

        retrieves the content for the paste with id <id>

      DELETE /<id>?password=<password>

        deletes the paste with id <id>

    EXAMPLE

        Upload a file:

            curl --data-binary @file.txt {base}/

        Upload from stdin:

            echo "Hello, World" | curl --data-binary @- {base}/

        Delete an existing paste:

            curl -X DELETE -G --data-urlencode 'password=<password>' {base}/<id>
`

func usage(base string) string {
	if base == "" {
		base = "http://localhost:8080"
	}
	return strings.ReplaceAll(usageText, "{base}", base)
}
