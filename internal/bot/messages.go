package bot

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/zippdf/zippdf/internal/convert"
	"github.com/zippdf/zippdf/internal/database"
)

// Texts shown to users. All messages are sent with HTML parse mode.
const (
	msgFileReceived   = "File received! Choose an option below:"
	msgNoDocument     = "No document found to convert."
	msgNotZip         = "Please send a ZIP file for conversion."
	msgProcessing     = "📂 Processing your ZIP file..."
	msgDone           = "✅ PDF generated and sent!"
	msgClosed         = "Message closed."
	msgExpired        = "This request has expired, please send the file again."
	msgNotAllowed     = "You are not authorized to perform this action."
	msgNoUsers        = "No authorized users found."
	msgDatabaseError  = "❌ Something went wrong, please try again later."
	msgInvalidCommand = "<b>INVALID USE OF COMMAND:</b>\n" +
		"<blockquote><b>➪ Check if the command is empty OR the added ID should be correct (10 digit numbers)</b></blockquote>"

	captionPDF = "Here is your PDF: %s 📄"

	buttonConvert = "Zip to PDF 📄"
	buttonClose   = "Close ❌"
)

const helpText = `<b>ZIP to PDF bot</b>

Send me a ZIP archive of images and press <b>Zip to PDF</b>, or run /pdf and upload the archive afterwards.
Pages are ordered naturally by file name (2.jpg comes before 10.jpg).

<b>Metadata</b>
/settitle, /setauthor, /setartist, /setaudio, /setsubtitle, /setvideo store a tag.
/metadata shows your stored tags. Title and author are written into generated PDFs.

/check_autho shows whether you are authorized.`

func awaitText(d time.Duration) string {
	return fmt.Sprintf("📂 Please send a ZIP file containing images. You have %s.", seconds(d))
}

func timeoutText(d time.Duration) string {
	return fmt.Sprintf("⏰ Timeout: No ZIP file received within %s.", seconds(d))
}

func seconds(d time.Duration) string {
	n := int(d.Round(time.Second) / time.Second)
	if n == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", n)
}

func notAuthorizedText(support string) string {
	return "<b>⚠️ You are not an Authorised User ⚠️</b>\n" +
		"<blockquote>If you want to use this bot, please contact: " + html.EscapeString(support) + "</blockquote>"
}

func notAllowedCommandText(support string) string {
	return "<b>⚠️ You are not authorized to use this command ⚠️</b>\n" +
		"<blockquote>Contact " + html.EscapeString(support) + " to get authorized.</blockquote>"
}

func checkAuthText(ok bool, support string) string {
	if ok {
		return "<b>Yes, You are an Authorised user 🟢</b>\n" +
			"<blockquote>You can send files to Rename or Convert to PDF.</blockquote>"
	}
	return "<b>Nope, You are not an Authorised user 🔴</b>\n" +
		"<blockquote>You can't send files to Rename or Convert to PDF.</blockquote>\n" +
		"<b>Contact " + html.EscapeString(support) + " to get authorized.</b>"
}

func usersAddedText(ids []string) string {
	return "<b>Authorised Users Added ✅</b>\n<blockquote><code>" + strings.Join(ids, " ") + "</code></blockquote>"
}

func usersRemovedText(ids []string) string {
	return "<b>Deleted Authorised Users 🆑</b>\n<blockquote><code>" + strings.Join(ids, " ") + "</code></blockquote>"
}

// stageFailedText is the single message a failed job produces.
func stageFailedText(err error) string {
	var se *convert.StageError
	if !errors.As(err, &se) {
		return "❌ Conversion failed: " + html.EscapeString(err.Error())
	}
	switch se.Stage {
	case convert.StageAwaitUpload:
		return "⏰ Timeout: No ZIP file received."
	case convert.StageDownload:
		return "❌ Error downloading file: " + html.EscapeString(se.Reason)
	case convert.StageExtract:
		if se.Reason == "invalid archive" {
			return "❌ Invalid ZIP file."
		}
		return "❌ Invalid ZIP file: " + html.EscapeString(se.Reason)
	case convert.StageNormalize:
		return "❌ No images found in the ZIP."
	case convert.StageAssemble:
		return "❌ Error converting to PDF: " + html.EscapeString(se.Reason)
	case convert.StageUpload:
		return "❌ Error uploading PDF: " + html.EscapeString(se.Reason)
	default:
		return "❌ Conversion failed: " + html.EscapeString(se.Reason)
	}
}

// setter describes a metadata setter command.
type setter struct {
	field   database.SettingField
	label   string
	name    string
	example string
}

var setters = map[string]setter{
	"settitle":    {field: database.SettingTitle, label: "Title", name: "Title", example: "/settitle Encoded By @anime_sub_society"},
	"setauthor":   {field: database.SettingAuthor, label: "Author", name: "Author", example: "/setauthor @anime_sub_society"},
	"setartist":   {field: database.SettingArtist, label: "Artist", name: "Artist", example: "/setartist @anime_sub_society"},
	"setaudio":    {field: database.SettingAudio, label: "Audio Title", name: "Audio", example: "/setaudio @anime_sub_society"},
	"setsubtitle": {field: database.SettingSubtitle, label: "Subtitle Title", name: "Subtitle", example: "/setsubtitle @anime_sub_society"},
	"setvideo":    {field: database.SettingVideo, label: "Video Title", name: "Video", example: "/setvideo Encoded by @anime_sub_society"},
}

func (s setter) usage() string {
	return fmt.Sprintf("<b>Give The %s\n\nExample:- %s</b>", s.label, html.EscapeString(s.example))
}

func (s setter) saved() string {
	return fmt.Sprintf("<b>✅ %s Saved</b>", s.name)
}

func metadataText(s *database.UserSettings) string {
	var b strings.Builder
	b.WriteString("<b>Your metadata</b>\n\n")
	for _, f := range database.TagFields {
		v := s.Get(f)
		if v == "" {
			v = "-"
		}
		fmt.Fprintf(&b, "<b>%s:</b> <code>%s</code>\n", f, html.EscapeString(v))
	}
	return strings.TrimRight(b.String(), "\n")
}
