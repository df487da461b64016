// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package statistical

import "strings"

// Gazetteers used by the tagger. Entries are lower case; an underscore joins
// the words of a multi-word entry.

var firstNames = toSet(`
mario luigi giuseppe giovanni francesco antonio alessandro andrea marco matteo
lorenzo luca stefano paolo roberto davide simone federico riccardo giorgio
fabio massimo claudio sergio salvatore vincenzo pietro carlo enrico alberto
daniele nicola michele emanuele gabriele filippo tommaso leonardo edoardo
giacomo domenico raffaele angelo franco bruno piero gianluca gianni maurizio
mauro diego fabrizio giancarlo emilio ugo aldo renato silvio vittorio nicolò
niccolò cristian christian samuele elia mattia jacopo giulio cesare ottavio
maria anna giulia francesca chiara sara laura valentina alessandra elena
martina federica silvia paola roberta giovanna lucia rosa teresa angela
giuseppina antonella cristina monica barbara simona daniela patrizia stefania
claudia elisa alice beatrice camilla sofia aurora ginevra emma greta irene
marta caterina carla ilaria serena veronica eleonora manuela raffaella
rita luisa margherita carolina benedetta arianna noemi viola ludovica
john james robert michael william david richard joseph thomas charles
christopher daniel matthew anthony mark steven paul andrew joshua kevin
brian george edward peter henry jack oliver harry
mary patricia jennifer linda elizabeth susan jessica sarah karen nancy
lisa betty margaret sandra ashley emily donna michelle carol amanda
olivia emma charlotte amelia sophie lucy hannah grace
hans klaus jürgen wolfgang pierre jean jacques françois marie sophie
carlos josé juan miguel pedro javier carmen ana isabel
`)

var surnames = toSet(`
rossi russo ferrari esposito bianchi romano colombo ricci marino greco bruno
gallo conti de_luca mancini costa giordano rizzo lombardi moretti barbieri
fontana santoro mariani rinaldi caruso ferrara galli martini leone longo
gentile martinelli vitale lombardo serra coppola de_santis d'angelo marchetti
parisi villa conte ferraro ferri fabbri bianco marini grasso valentini messina
sala de_angelis gatti pellegrini palumbo sanna farina rizzi monti cattaneo
morelli amato silvestri mazza testa grassi pellegrino carbone giuliani
benedetti barone rossetti caputo montanari guerra palmieri bernardi martino
fiore de_rosa ferretti bellini basile riva donati piras vitali battaglia
sartori neri costantini milani pagano ruggiero sorrentino d'amico orlando
negri verdi gialli bellucci tedesco moro
smith johnson williams brown jones miller davis wilson anderson taylor
thomas moore jackson martin lee thompson white harris clark lewis
robinson walker young allen king wright scott green baker adams
müller schmidt schneider fischer weber meyer wagner becker
dupont durand lefebvre moreau garcía fernández gonzález rodríguez lópez martínez
`)

// particles may start a compound surname such as "De Luca" or "Dell'Erba"
var surnameParticles = toSet(`de di da del della dello dei degli delle dal dalla lo la van von mc`)

var honorifics = toSet(`
sig. sig.ra sig.na signor signora signorina sigg. dott. dott.ssa dr. dr
avv. avvocato avvocata prof. prof.ssa professor professore professoressa ing.
geom. rag. arch. notaio not. on. sen. dep. mons. cav. comm. gen. col.
mr. mr mrs. mrs ms. ms miss sir lady judge giudice consigliere presidente
`)

// person triggers are words that usually precede a person name
var personTriggers = toSet(`
nato nata nati residente domiciliato domiciliata rappresentato rappresentata
difeso difesa sottoscritto sottoscritta ricorrente resistente attore attrice
convenuto convenuta imputato imputata erede coniuge figlio figlia padre madre
persona testimone teste defunto defunta vedova born
`)

var orgSuffixes = []string{
	"s.p.a.", "s.p.a", "spa", "s.r.l.", "s.r.l", "srl", "s.r.l.s.", "srls", "s.n.c.", "snc",
	"s.a.s.", "sas", "s.c.a.r.l.", "scarl", "soc. coop.", "inc.", "inc", "llc", "ltd.", "ltd",
	"plc", "gmbh", "ag", "s.a.", "b.v.", "corp.", "corporation", "co.",
}

var orgTriggers = toSet(`
società ditta impresa studio banca associazione fondazione cooperativa consorzio
azienda gruppo compagnia istituto holding agenzia company bank
`)

// words that are capitalized for grammatical reasons only
var stopCapitalized = toSet(`
il lo la i gli le un uno una di da in con su per tra fra e ed o a al allo alla
ai agli alle del dello della dei degli delle nel nello nella nei negli nelle
sul sulla che chi non si ma se come quando dove questo questa quello quella
ciò tale tali ogni visto visti considerato ritenuto premesso atteso pertanto
inoltre tuttavia infatti quindi poiché sentenza ordinanza decreto tribunale
corte giudice avvocato articolo art. legge codice comma capo capitolo sezione
parte fatto fatti diritto motivi conclusioni premessa oggetto allegato pag
the a an of and or in on at to for by with from this that these those
gennaio febbraio marzo aprile maggio giugno luglio agosto settembre ottobre
novembre dicembre lunedì martedì mercoledì giovedì venerdì sabato domenica
january february march april may june july august september october november december
`)

var cities = toSet(`
roma milano napoli torino palermo genova bologna firenze bari catania venezia
verona messina padova trieste taranto brescia parma prato modena reggio
perugia livorno ravenna cagliari foggia rimini salerno ferrara sassari latina
monza siracusa pescara bergamo forlì trento vicenza terni bolzano novara
piacenza ancona andria arezzo udine cesena lecce pesaro barletta alessandria
la_spezia pisa pistoia catanzaro lucca brindisi como treviso varese grosseto
caserta asti ragusa cremona trapani cosenza savona matera benevento avellino
potenza campobasso aosta l'aquila viterbo frosinone rieti chieti teramo
siena mantova pavia lodi lecco sondrio biella cuneo vercelli imperia massa
carrara crotone vibo agrigento caltanissetta enna nuoro oristano olbia
lombardia piemonte veneto liguria toscana emilia romagna lazio campania
puglia calabria sicilia sardegna umbria marche abruzzo molise basilicata
friuli trentino valle_d'aosta italia
london paris berlin madrid barcelona lisbon vienna zurich geneva munich
frankfurt brussels amsterdam dublin new_york los_angeles chicago boston
washington tokyo beijing moscow athens warsaw prague budapest stockholm
`)

// location triggers precede a place name
var locationTriggers = toSet(`
a in presso di da nato nata residente sede comune provincia città regione
foro tribunale corte born at
`)

func toSet(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[strings.ReplaceAll(w, "_", " ")] = true
	}
	return set
}
