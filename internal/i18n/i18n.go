// Package i18n holds the message catalog for English, Hindi, and Marathi.
// Lookups fall back to English, then to the key itself, so a missing
// translation never produces an empty message.
package i18n

import "fmt"

// SupportedLanguages lists the language codes students can choose.
var SupportedLanguages = []string{"en", "hi", "mr"}

// IsSupported reports whether code is a selectable language.
func IsSupported(code string) bool {
	for _, l := range SupportedLanguages {
		if l == code {
			return true
		}
	}
	return false
}

// LanguageName returns the display name for a language code.
func LanguageName(code string) string {
	switch code {
	case "hi":
		return "हिन्दी"
	case "mr":
		return "मराठी"
	default:
		return "English"
	}
}

// T returns the message for key in the given language, interpolating args via
// fmt.Sprintf when present.
func T(lang, key string, args ...any) string {
	msg, ok := catalog[lang][key]
	if !ok {
		msg, ok = catalog["en"][key]
	}
	if !ok {
		msg = key
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

var catalog = map[string]map[string]string{
	"en": {
		"choose_language":   "Welcome to LearnBuddy! 📚\nPlease choose your language:",
		"ask_first_name":    "Great! What is your first name?",
		"ask_last_name":     "And your last name?",
		"ask_dob":           "Your date of birth? (DD-MM-YYYY, e.g. 15-08-2011)",
		"bad_dob":           "That doesn't look right. Please use DD-MM-YYYY, e.g. 15-08-2011.",
		"ask_phone":         "Your mobile number? (10 digits, or tap the button to share)",
		"bad_phone":         "That doesn't look like an Indian mobile number. Please send 10 digits starting with 6-9.",
		"share_phone":       "Share my number",
		"ask_city":          "Which city do you live in?",
		"ask_board":         "Which board do you study under?",
		"state_board":       "State Board",
		"confirm_state":     "Is your state %s?",
		"pick_state":        "Please select your state:",
		"ask_grade":         "Which grade are you in? (6-12)",
		"bad_grade":         "Please pick a grade between 6 and 12.",
		"choose_subject":    "Pick a subject to study:",
		"subject_set":       "Subject set to %s. Send START for your first lesson!",
		"onboard_done":      "You're all set, %s! 🎉",
		"generating":        "Preparing your lesson, give me a moment... ⏳",
		"lesson_title":      "📖 %s",
		"quiz_intro":        "Now a quick quiz! 3 questions, answer with A, B, C or D.",
		"question":          "Q%d. %s",
		"correct":           "✅ Correct! %s",
		"incorrect":         "❌ Not quite. The answer is %s. %s",
		"quiz_result":       "You scored %d/%d! 🏁",
		"level_up":          "Level up! You're now at level %d. 🚀",
		"level_down":        "We'll ease off a bit: level %d. Keep practicing!",
		"level_same":        "Staying at level %d. You've got this!",
		"streak":            "🔥 Streak: %d perfect quizzes in a row!",
		"next_lesson_hint":  "Send START for your next lesson, or HELP for other options.",
		"help": "Here's what I understand:\n" +
			"START - get a new lesson\nQUIZ - retry the current quiz\n" +
			"SUBJECT - change subject\nPROFILE - view or edit your profile\n" +
			"STATS - your recent scores\nRANK - your standing\nRESET - start over\nHELP - this message",
		"profile_header": "Your profile:\n%s\nReply with a letter to edit:",
		"profile_menu": "A) Name\nB) City\nC) Board & State\nD) Grade\nE) Subject",
		"edit_name":      "Send your new name (first and last):",
		"edit_city":      "Send your new city:",
		"edit_grade":     "Send your new grade (6-12):",
		"profile_saved":  "Saved! ✅",
		"stats_header":   "Your last %d quizzes:",
		"stats_line":     "%s level %d: %d/%d",
		"stats_empty":    "No quizzes yet. Send START to begin!",
		"rank":           "🏆 Leaderboard (coming soon):\n1) You - 3 pts\n2) Student B - 2 pts\n3) Student C - 1 pt",
		"reset_done":     "Session reset. Send START for a new lesson!",
		"unknown":        "I didn't get that. Send HELP to see what I can do.",
		"not_in_quiz":    "There's no quiz running. Send START for a lesson!",
		"quiz_done":      "You've finished this quiz! Send START for a new lesson.",
		"lesson_ready":   "Send QUIZ when you're ready for the questions!",
		"answer_with":    "Please answer with A, B, C or D.",
		"gen_failed":     "I couldn't prepare a lesson right now. Please try START again in a minute.",
		"btn_yes":        "Yes",
		"btn_no":         "No",
		"btn_prev":       "⬅️ Back",
		"btn_more":       "More ➡️",
		"btn_next_q":     "Next question ➡️",
		"nudge":          "Hi %s! 👋 Your %s lessons miss you. Send START for a quick one!",
	},
	"hi": {
		"choose_language":  "LearnBuddy में आपका स्वागत है! 📚\nकृपया अपनी भाषा चुनें:",
		"ask_first_name":   "बहुत अच्छा! आपका पहला नाम क्या है?",
		"ask_last_name":    "और आपका अंतिम नाम?",
		"ask_dob":          "आपकी जन्मतिथि? (DD-MM-YYYY, जैसे 15-08-2011)",
		"bad_dob":          "यह सही नहीं लग रहा। कृपया DD-MM-YYYY प्रारूप में भेजें, जैसे 15-08-2011।",
		"ask_phone":        "आपका मोबाइल नंबर? (10 अंक, या बटन दबाकर साझा करें)",
		"bad_phone":        "यह भारतीय मोबाइल नंबर नहीं लग रहा। कृपया 6-9 से शुरू होने वाले 10 अंक भेजें।",
		"share_phone":      "मेरा नंबर साझा करें",
		"ask_city":         "आप किस शहर में रहते हैं?",
		"ask_board":        "आप किस बोर्ड में पढ़ते हैं?",
		"state_board":      "राज्य बोर्ड",
		"confirm_state":    "क्या आपका राज्य %s है?",
		"pick_state":       "कृपया अपना राज्य चुनें:",
		"ask_grade":        "आप किस कक्षा में हैं? (6-12)",
		"bad_grade":        "कृपया 6 से 12 के बीच की कक्षा चुनें।",
		"choose_subject":   "पढ़ने के लिए विषय चुनें:",
		"subject_set":      "विषय %s चुना गया। पहले पाठ के लिए START भेजें!",
		"onboard_done":     "सब तैयार है, %s! 🎉",
		"generating":       "आपका पाठ तैयार हो रहा है, एक क्षण दीजिए... ⏳",
		"lesson_title":     "📖 %s",
		"quiz_intro":       "अब एक छोटी प्रश्नोत्तरी! 3 प्रश्न, A, B, C या D से उत्तर दें।",
		"question":         "प्र%d. %s",
		"correct":          "✅ सही! %s",
		"incorrect":        "❌ नहीं। सही उत्तर %s है। %s",
		"quiz_result":      "आपने %d/%d अंक पाए! 🏁",
		"level_up":         "स्तर बढ़ा! अब आप स्तर %d पर हैं। 🚀",
		"level_down":       "थोड़ा आसान करते हैं: स्तर %d। अभ्यास जारी रखें!",
		"level_same":       "स्तर %d पर बने हैं। आप कर सकते हैं!",
		"streak":           "🔥 लगातार %d परफेक्ट प्रश्नोत्तरी!",
		"next_lesson_hint": "अगले पाठ के लिए START भेजें, या HELP से और विकल्प देखें।",
		"stats_empty":      "अभी कोई प्रश्नोत्तरी नहीं। शुरू करने के लिए START भेजें!",
		"rank":             "🏆 लीडरबोर्ड (जल्द आ रहा है):\n1) आप - 3 अंक\n2) Student B - 2\n3) Student C - 1",
		"reset_done":       "सत्र रीसेट हुआ। नए पाठ के लिए START भेजें!",
		"unknown":          "समझ नहीं आया। HELP भेजकर देखें मैं क्या कर सकता हूँ।",
		"not_in_quiz":      "कोई प्रश्नोत्तरी नहीं चल रही। पाठ के लिए START भेजें!",
		"quiz_done":        "यह प्रश्नोत्तरी पूरी हो गई! नए पाठ के लिए START भेजें।",
		"lesson_ready":     "प्रश्नों के लिए तैयार हों तो QUIZ भेजें!",
		"answer_with":      "कृपया A, B, C या D से उत्तर दें।",
		"gen_failed":       "अभी पाठ तैयार नहीं हो सका। कृपया एक मिनट में फिर START भेजें।",
		"btn_yes":          "हाँ",
		"btn_no":           "नहीं",
		"btn_prev":         "⬅️ पीछे",
		"btn_more":         "आगे ➡️",
		"btn_next_q":       "अगला प्रश्न ➡️",
		"nudge":            "नमस्ते %s! 👋 आपके %s पाठ आपका इंतज़ार कर रहे हैं। START भेजें!",
	},
	"mr": {
		"choose_language":  "LearnBuddy मध्ये स्वागत आहे! 📚\nकृपया तुमची भाषा निवडा:",
		"ask_first_name":   "छान! तुमचे पहिले नाव काय आहे?",
		"ask_last_name":    "आणि तुमचे आडनाव?",
		"ask_dob":          "तुमची जन्मतारीख? (DD-MM-YYYY, उदा. 15-08-2011)",
		"bad_dob":          "हे बरोबर वाटत नाही. कृपया DD-MM-YYYY स्वरूपात पाठवा, उदा. 15-08-2011.",
		"ask_phone":        "तुमचा मोबाइल नंबर? (10 अंक, किंवा बटण दाबून शेअर करा)",
		"bad_phone":        "हा भारतीय मोबाइल नंबर वाटत नाही. कृपया 6-9 ने सुरू होणारे 10 अंक पाठवा.",
		"share_phone":      "माझा नंबर शेअर करा",
		"ask_city":         "तुम्ही कोणत्या शहरात राहता?",
		"ask_board":        "तुम्ही कोणत्या बोर्डात शिकता?",
		"state_board":      "राज्य मंडळ",
		"confirm_state":    "तुमचे राज्य %s आहे का?",
		"pick_state":       "कृपया तुमचे राज्य निवडा:",
		"ask_grade":        "तुम्ही कोणत्या इयत्तेत आहात? (6-12)",
		"bad_grade":        "कृपया 6 ते 12 मधील इयत्ता निवडा.",
		"choose_subject":   "अभ्यासासाठी विषय निवडा:",
		"subject_set":      "विषय %s निवडला. पहिल्या धड्यासाठी START पाठवा!",
		"onboard_done":     "सगळे तयार आहे, %s! 🎉",
		"generating":       "तुमचा धडा तयार होत आहे, एक क्षण द्या... ⏳",
		"lesson_title":     "📖 %s",
		"quiz_intro":       "आता एक छोटी प्रश्नमंजुषा! 3 प्रश्न, A, B, C किंवा D ने उत्तर द्या.",
		"question":         "प्र%d. %s",
		"correct":          "✅ बरोबर! %s",
		"incorrect":        "❌ नाही. बरोबर उत्तर %s आहे. %s",
		"quiz_result":      "तुम्हाला %d/%d गुण मिळाले! 🏁",
		"level_up":         "पातळी वाढली! आता तुम्ही पातळी %d वर आहात. 🚀",
		"level_down":       "थोडे सोपे करूया: पातळी %d. सराव चालू ठेवा!",
		"level_same":       "पातळी %d वर आहात. तुम्ही करू शकता!",
		"streak":           "🔥 सलग %d परफेक्ट प्रश्नमंजुषा!",
		"next_lesson_hint": "पुढील धड्यासाठी START पाठवा, किंवा HELP ने इतर पर्याय पाहा.",
		"stats_empty":      "अजून प्रश्नमंजुषा नाही. सुरू करण्यासाठी START पाठवा!",
		"rank":             "🏆 लीडरबोर्ड (लवकरच येत आहे):\n1) तुम्ही - 3 गुण\n2) Student B - 2\n3) Student C - 1",
		"reset_done":       "सत्र रीसेट झाले. नव्या धड्यासाठी START पाठवा!",
		"unknown":          "समजले नाही. HELP पाठवून पाहा मी काय करू शकतो.",
		"not_in_quiz":      "कोणतीही प्रश्नमंजुषा चालू नाही. धड्यासाठी START पाठवा!",
		"quiz_done":        "ही प्रश्नमंजुषा पूर्ण झाली! नव्या धड्यासाठी START पाठवा.",
		"lesson_ready":     "प्रश्नांसाठी तयार असाल तर QUIZ पाठवा!",
		"answer_with":      "कृपया A, B, C किंवा D ने उत्तर द्या.",
		"gen_failed":       "आत्ता धडा तयार होऊ शकला नाही. कृपया एका मिनिटाने पुन्हा START पाठवा.",
		"btn_yes":          "होय",
		"btn_no":           "नाही",
		"btn_prev":         "⬅️ मागे",
		"btn_more":         "पुढे ➡️",
		"btn_next_q":       "पुढील प्रश्न ➡️",
		"nudge":            "नमस्कार %s! 👋 तुमचे %s धडे तुमची वाट पाहत आहेत. START पाठवा!",
	},
}
