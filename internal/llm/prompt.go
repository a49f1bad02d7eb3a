package llm

import "strings"

// BuildInstruction returns the fixed instruction template sent with every
// image. The wording targets FFT licence attestations and French identity
// documents; the model is asked for strict JSON, which it does not always
// honor.
func BuildInstruction() string {
	parts := []string{
		"Analyse l'image de ce document et determine s'il s'agit d'une attestation de licence de la Federation Francaise de Tennis (FFT) ou d'une piece d'identite.",
		"Extrais les informations suivantes au format JSON strict :",
		`1. "type": "licence" pour une attestation de licence, "identite" pour une piece d'identite.`,
		`2. "nom": le nom de famille de la personne (en majuscules).`,
		`3. "prenom": le prenom de la personne.`,
		`4. "licence": le numero de licence, compose de chiffres et eventuellement d'une lettre. Uniquement pour une licence.`,
		`5. "annee_validite": l'annee de validite de la licence, un nombre de 4 chiffres.`,
		`6. "classement": le classement tennis, a droite de la mention 'Classement tennis'. Valeurs possibles : NC, 40, 30/5, 30/4, 30/3, 30/2, 30/1, 30, 15/5, 15/4, 15/3, 15/2, 15/1, 15, 5/6, 4/6, 3/6, 2/6, 1/6, 0, -2/6, -4/6, -15, ou un nombre. Ne retourne que la valeur.`,
		`7. "club": le nom du club si visible.`,
		`8. "statut": le statut de la licence si visible (par exemple "validee").`,
		`9. "confidence": ta confiance dans l'extraction, "haute", "moyenne" ou "basse".`,
		`Exemple de reponse attendue : {"type": "licence", "nom": "MARTIN", "prenom": "Lea", "licence": "1234567B", "annee_validite": "2025", "classement": "30/1", "confidence": "haute"}`,
		"Ne retourne que le JSON, sans aucun texte ou formatage supplementaire comme les backticks '```json'.",
	}
	return strings.Join(parts, "\n")
}
