package local

// Textos visibles por el usuario. El francés es el idioma por defecto.
var (
	ReplyError = NewSet(
		"Désolé, une erreur s'est produite. Veuillez réessayer.",
		NewTrans(Eng, "Sorry, something went wrong. Please try again."),
	)
	PlaceholderReply = NewSet(
		"Je suis une simulation de réponse. Dans une version réelle, cette réponse viendrait d'une API d'IA comme GPT-3.5 ou une autre API similaire.",
		NewTrans(Eng, "I am a simulated reply. In a real deployment this answer would come from an AI API such as GPT-3.5 or similar."),
	)
	NewConversationTitle = NewSet(
		"Nouvelle conversation",
		NewTrans(Eng, "New conversation"),
	)
	ConfirmClearAll = NewSet(
		"Voulez-vous vraiment effacer toutes les conversations ?",
		NewTrans(Eng, "Do you really want to delete all conversations?"),
	)
	PasswordMismatch = NewSet(
		"Les mots de passe ne correspondent pas",
		NewTrans(Eng, "Passwords do not match"),
	)
	RegisterSuccess = NewSet(
		"Inscription réussie ! Vous pouvez maintenant vous connecter.",
		NewTrans(Eng, "Registration successful! You can now sign in."),
	)
	AuthFailed = NewSet(
		"Échec de l'authentification",
		NewTrans(Eng, "Authentication failed"),
	)
	InvalidCredentials = NewSet(
		"Email ou mot de passe incorrect",
		NewTrans(Eng, "Wrong email or password"),
	)
	InvalidEmail = NewSet(
		"Adresse email invalide",
		NewTrans(Eng, "Invalid email address"),
	)
	PasswordRequired = NewSet(
		"Le mot de passe est obligatoire",
		NewTrans(Eng, "Password is required"),
	)
	TooManyAttempts = NewSet(
		"Trop de tentatives. Réessayez dans %d min.",
		NewTrans(Eng, "Too many attempts. Try again in %d min."),
	)
	UserExists = NewSet(
		"Un compte existe déjà avec cet email",
		NewTrans(Eng, "An account with this email already exists"),
	)
)
