package bot

import (
	"github.com/moyoez/batchshare/subscription"
)

const (
	callbackHome        = "home"
	callbackHelp        = "help"
	callbackAbout       = "about"
	callbackDeleteBatch = "delete_batch_"
)

func (d *Dispatcher) startKeyboard() Keyboard {
	return Keyboard{
		{{Text: "Help 📜", CallbackData: callbackHelp}, {Text: "About ℹ️", CallbackData: callbackAbout}},
		{{Text: "Channel 📢", URL: d.opts.ChannelLink}, {Text: "Developer 👨‍💻", URL: d.opts.DeveloperLink}},
	}
}

func (d *Dispatcher) helpKeyboard() Keyboard {
	return Keyboard{
		{{Text: "Home 🏠", CallbackData: callbackHome}, {Text: "About ℹ️", CallbackData: callbackAbout}},
		{{Text: "Channel 📢", URL: d.opts.ChannelLink}},
	}
}

func (d *Dispatcher) aboutKeyboard() Keyboard {
	return Keyboard{
		{{Text: "Home 🏠", CallbackData: callbackHome}, {Text: "Help 📜", CallbackData: callbackHelp}},
		{{Text: "Channel 📢", URL: d.opts.ChannelLink}},
	}
}

func forceSubKeyboard(actions []subscription.JoinAction) Keyboard {
	kb := make(Keyboard, 0, len(actions))
	for _, a := range actions {
		kb = append(kb, []Button{{Text: a.Text, URL: a.URL}})
	}
	return kb
}

func summaryKeyboard(link, batchId string) Keyboard {
	return Keyboard{
		{{Text: "🔗 Access Files", URL: link}},
		{{Text: "🗑 Delete Batch", CallbackData: callbackDeleteBatch + batchId}},
	}
}

// dropEmptyURLs removes url buttons whose link is not configured; the Bot API rejects them.
func dropEmptyURLs(kb Keyboard) Keyboard {
	out := make(Keyboard, 0, len(kb))
	for _, row := range kb {
		kept := make([]Button, 0, len(row))
		for _, b := range row {
			if b.CallbackData == "" && b.URL == "" {
				continue
			}
			kept = append(kept, b)
		}
		if len(kept) > 0 {
			out = append(out, kept)
		}
	}
	return out
}
