package i18n

import "golang.org/x/text/message"

// Message keys for the magic-link pages.
const (
	KeyRequestHeader     = "authentication.requestMagicLink.header"
	KeyTabEmail          = "authentication.requestMagicLink.tabs.email"
	KeyTabSMS            = "authentication.requestMagicLink.tabs.sms"
	KeyTabPhoneCall      = "authentication.requestMagicLink.tabs.phonecall"
	KeyFieldEmail        = "authentication.requestMagicLink.fields.email"
	KeyFieldPhoneNumber  = "authentication.requestMagicLink.fields.phoneNumber"
	KeyAlreadyHaveCode   = "authentication.requestMagicLink.already_have_code"
	KeySimpleLogin       = "authentication.requestMagicLink.simple_login_btn"
	KeySendMagicLink     = "authentication.requestMagicLink.send_magic_link"
	KeyInvalidCreds      = "authentication.requestMagicLink.invalid_credentials"
	KeySubmitHeader      = "authentication.submitMagicLink.header"
	KeySubmitSentTo      = "authentication.submitMagicLink.sent_by"
	KeySubmitCode        = "authentication.submitMagicLink.fields.code"
	KeySubmitButton      = "authentication.submitMagicLink.submit"
	KeySubmitRequestNew  = "authentication.submitMagicLink.request_new"
	KeySubmitInvalidCode = "authentication.submitMagicLink.invalid_code"
	KeyMethodEmail       = "authentication.methods.email"
	KeyMethodSMS         = "authentication.methods.sms"
	KeyMethodPhoneCall   = "authentication.methods.phonecall"
	KeyTooManyRequests   = "authentication.too_many_requests"
)

func init() {
	lang := enUS
	message.SetString(lang, KeyRequestHeader, "Sign in with a magic code")
	message.SetString(lang, KeyTabEmail, "By Email")
	message.SetString(lang, KeyTabSMS, "By SMS")
	message.SetString(lang, KeyTabPhoneCall, "By Phonecall")
	message.SetString(lang, KeyFieldEmail, "Email")
	message.SetString(lang, KeyFieldPhoneNumber, "Phone number")
	message.SetString(lang, KeyAlreadyHaveCode, "I already have a code")
	message.SetString(lang, KeySimpleLogin, "Log in with a password")
	message.SetString(lang, KeySendMagicLink, "Send magic code")
	message.SetString(lang, KeyInvalidCreds, "Invalid credentials")
	message.SetString(lang, KeySubmitHeader, "Enter your code")
	message.SetString(lang, KeySubmitSentTo, "We sent a code by %s.")
	message.SetString(lang, KeySubmitCode, "Code")
	message.SetString(lang, KeySubmitButton, "Sign in")
	message.SetString(lang, KeySubmitRequestNew, "Send a new code")
	message.SetString(lang, KeySubmitInvalidCode, "Invalid or expired code")
	message.SetString(lang, KeyMethodEmail, "email")
	message.SetString(lang, KeyMethodSMS, "SMS")
	message.SetString(lang, KeyMethodPhoneCall, "phone call")
	message.SetString(lang, KeyTooManyRequests, "Too many attempts. Wait a moment and try again.")

	lang = esES
	message.SetString(lang, KeyRequestHeader, "Inicia sesión con un código mágico")
	message.SetString(lang, KeyTabEmail, "Por correo")
	message.SetString(lang, KeyTabSMS, "Por SMS")
	message.SetString(lang, KeyTabPhoneCall, "Por llamada")
	message.SetString(lang, KeyFieldEmail, "Correo electrónico")
	message.SetString(lang, KeyFieldPhoneNumber, "Número de teléfono")
	message.SetString(lang, KeyAlreadyHaveCode, "Ya tengo un código")
	message.SetString(lang, KeySimpleLogin, "Iniciar sesión con contraseña")
	message.SetString(lang, KeySendMagicLink, "Enviar código mágico")
	message.SetString(lang, KeyInvalidCreds, "Credenciales inválidas")
	message.SetString(lang, KeySubmitHeader, "Introduce tu código")
	message.SetString(lang, KeySubmitSentTo, "Te enviamos un código por %s.")
	message.SetString(lang, KeySubmitCode, "Código")
	message.SetString(lang, KeySubmitButton, "Entrar")
	message.SetString(lang, KeySubmitRequestNew, "Enviar un código nuevo")
	message.SetString(lang, KeySubmitInvalidCode, "Código inválido o caducado")
	message.SetString(lang, KeyMethodEmail, "correo electrónico")
	message.SetString(lang, KeyMethodSMS, "SMS")
	message.SetString(lang, KeyMethodPhoneCall, "llamada")
	message.SetString(lang, KeyTooManyRequests, "Demasiados intentos. Espera un momento y vuelve a intentarlo.")
}
